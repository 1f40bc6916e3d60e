// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package input parses sequences of base 10 int64 values.
package input

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// A SyntaxError reports a token which is not a valid int64.
type SyntaxError struct {
	// Pos is the 1-based position of the token in the input.
	Pos int

	// Token is the offending token.
	Token string

	// Err is the error returned by strconv.ParseInt.
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("input: value #%d %q: %v", e.Pos, e.Token, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Parse reads values separated by white space and/or commas from r.
func Parse(r io.Reader) ([]int64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(scanValues)

	var values []int64
	for sc.Scan() {
		v, err := parseValue(sc.Text(), len(values)+1)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	return values, nil
}

// ParseArgs parses command line arguments. Each argument may itself hold
// several comma separated values.
func ParseArgs(args []string) ([]int64, error) {
	var values []int64
	for _, arg := range args {
		sc := bufio.NewScanner(bytes.NewBufferString(arg))
		sc.Split(scanValues)
		for sc.Scan() {
			v, err := parseValue(sc.Text(), len(values)+1)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	}
	return values, nil
}

func parseValue(tok string, pos int) (int64, error) {
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok {
			err = ne.Err
		}
		return 0, &SyntaxError{Pos: pos, Token: tok, Err: err}
	}
	return v, nil
}

func isSeparator(b byte) bool {
	switch b {
	case ',', ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// scanValues is a bufio.SplitFunc which splits on runs of separators.
func scanValues(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSeparator(data[start]) {
		start++
	}
	for i := start; i < len(data); i++ {
		if isSeparator(data[i]) {
			return i + 1, data[start:i], nil
		}
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}
