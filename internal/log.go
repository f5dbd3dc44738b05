// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package internal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Process-wide log writer. Writes to stdout, and optionally to a file.
// Does not add prefixes, or force newlines. Safe for concurrent use, so
// batch workers can share it.
type teeLog struct {
	sync.Mutex
	stdout    io.Writer
	logFile   *bufio.Writer // the optional additional file to log into
	logFileOS *os.File
}

var theLog = &teeLog{stdout: os.Stdout}

func (l *teeLog) Write(p []byte) (n int, err error) {
	l.Lock()
	defer l.Unlock()
	n, err = l.stdout.Write(p)
	if err != nil || l.logFile == nil {
		return n, err
	}
	return l.logFile.Write(p)
}

func (l *teeLog) closeFile() error {
	if l.logFile == nil {
		return nil
	}
	if err := l.logFile.Flush(); err != nil {
		return err
	}
	err := l.logFileOS.Close()
	l.logFile, l.logFileOS = nil, nil
	return err
}

// Returns the log writer, to be threaded through operations as logWriter
func LogWriter() io.Writer {
	return theLog
}

// Enables logging to file
func LogAlsoToFile(fileName string) error {
	theLog.Lock()
	defer theLog.Unlock()
	if err := theLog.closeFile(); err != nil {
		return err
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	theLog.logFileOS, theLog.logFile = f, bufio.NewWriter(f)
	return nil
}

func LogPrint(args ...interface{}) (n int, err error) {
	return fmt.Fprint(theLog, args...)
}

func LogPrintln(args ...interface{}) (n int, err error) {
	return fmt.Fprintln(theLog, args...)
}

func LogPrintf(format string, args ...interface{}) (n int, err error) {
	return fmt.Fprintf(theLog, format, args...)
}

func LogFatal(args ...interface{}) {
	fmt.Fprintln(theLog, args...)
	LogClose()
	os.Exit(1)
}

func LogFatalf(format string, args ...interface{}) {
	fmt.Fprintf(theLog, format, args...)
	LogClose()
	os.Exit(1)
}

// Flushes the log file to disk
func LogSync() {
	theLog.Lock()
	defer theLog.Unlock()
	if theLog.logFile == nil {
		return
	}
	theLog.logFile.Flush()
	theLog.logFileOS.Sync()
}

// Flushes and closes the log file, if any. Logging continues to stdout.
func LogClose() error {
	theLog.Lock()
	defer theLog.Unlock()
	return theLog.closeFile()
}
