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

package ops

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// An execution context for pipelines
type Context struct {
	Log          io.Writer
	MemoryMB     int    // memory.TotalMemory()/1024/1024
	WorkMemoryMB int    // MemoryMB*7/10
	MaxThreads   int    `json:"maxThreads"`
	CPU          string // brand name
	LogicalCores int
}

// Creates a context. maxThreads<=0 selects GOMAXPROCS, capped by the
// number of logical cores if those are known.
func NewContext(log io.Writer, maxThreads int) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	if maxThreads <= 0 {
		maxThreads = runtime.GOMAXPROCS(0)
		if cores := cpuid.CPU.LogicalCores; cores > 0 && cores < maxThreads {
			maxThreads = cores
		}
	}
	return &Context{
		Log:          log,
		MemoryMB:     memoryMB,
		WorkMemoryMB: memoryMB * 7 / 10,
		MaxThreads:   maxThreads,
		CPU:          cpuid.CPU.BrandName,
		LogicalCores: cpuid.CPU.LogicalCores,
	}
}

// Working set of the pipeline for one frame with the given number of pixels,
// in bytes: the 16-bit frame, four grids, four reconstructed images and five
// result maps as float64.
func FrameWorkingSet(pixels int) int64 {
	return int64(pixels)*2 + int64(pixels)*8*(1+4+5)
}

// Returns the number of frames to process concurrently, bounded by MaxThreads
// and by the working memory divided by the per-frame working set. At least 1.
func (c *Context) ThreadsFor(pixels int) int {
	threads := c.MaxThreads
	if c.WorkMemoryMB > 0 && pixels > 0 {
		byMemory := int(int64(c.WorkMemoryMB) * 1024 * 1024 / FrameWorkingSet(pixels))
		if byMemory < threads {
			threads = byMemory
		}
	}
	if threads < 1 {
		threads = 1
	}
	return threads
}

func (c *Context) String() string {
	cpu := c.CPU
	if cpu == "" {
		cpu = "unknown CPU"
	}
	return fmt.Sprintf("%s with %d logical cores, %d MB physical memory, %d threads",
		cpu, c.LogicalCores, c.MemoryMB, c.MaxThreads)
}

// A promise for a pipeline result. Returns a materialized result, or an error
type Promise func() (r *Result, err error)

// Materializes all promises with given concurrency limit. If forget is set,
// results are dropped after materialization and only errors are returned.
func MaterializeAll(ins []Promise, maxThreads int, forget bool) (outs []*Result, err error) {
	if len(ins) == 0 {
		return nil, nil
	}
	if maxThreads < 1 {
		maxThreads = 1
	}
	if !forget {
		outs = make([]*Result, len(ins))
	}
	limiter := make(chan bool, maxThreads)
	errs := make(chan error, len(ins))
	for i, in := range ins {
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			r, err := theIn() // materialize the promise
			if err != nil {
				errs <- err
				return
			}
			if !forget {
				outs[i] = r
			}
			errs <- nil
		}(i, in)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	for i := 0; i < len(ins); i++ { // collect errors
		if e := <-errs; e != nil {
			if err == nil {
				err = e
			} else {
				err = fmt.Errorf("%s; %s", err.Error(), e.Error())
			}
		}
	}
	return RemoveNils(outs), err
}

// Remove nils from an array of results, editing the underlying array in place
func RemoveNils(rs []*Result) []*Result {
	o := 0
	for i := 0; i < len(rs); i++ {
		if rs[i] != nil {
			rs[o] = rs[i]
			o++
		}
	}
	for i := o; i < len(rs); i++ {
		rs[i] = nil
	}
	return rs[:o]
}

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func IsPathAllowed(p string) bool {
	if filepath.IsAbs(p) {
		return false // relative paths only
	}
	if strings.Contains(p, "..") {
		return false // no going outside the tree
	}
	return true
}

// Expands filename wildcards into a list of file names. If sandboxed,
// matches outside the current directory tree are skipped.
func GlobFiles(patterns []string, sandboxed bool, log io.Writer) (fileNames []string, err error) {
	for _, pattern := range patterns {
		if sandboxed && !IsPathAllowed(pattern) {
			return nil, errors.New("Filename pattern outside current directory tree, aborting")
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if sandboxed && !IsPathAllowed(match) {
				fmt.Fprintf(log, "Pattern match outside current directory tree, skipping\n")
				continue
			}
			fileNames = append(fileNames, match)
		}
	}
	if len(fileNames) == 0 {
		return nil, fmt.Errorf("no files to load from pattern %v", patterns)
	}
	fmt.Fprintf(log, "Found %d files.\n", len(fileNames))
	return fileNames, nil
}
