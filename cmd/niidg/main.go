// Command niidg checks and validates research-data crates against the
// built-in sponsor profiles.
//
//	niidg validate 'crates/**/ro-crate-metadata.json'
//	niidg check --json ro-crate-metadata.json
//	niidg schema list cao
//	niidg schema export cao DMP
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	_ "github.com/reoring/niidg/schema/all"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1
	exitSystem  = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// exitError carries the exit code of a failed command. A nil err means the
// command already reported the failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func systemError(err error) error { return &exitError{code: exitSystem, err: err} }

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	code := exitSystem
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
		err = ee.err
	}
	if err != nil {
		fmt.Fprintln(stderr, "niidg:", err)
	}
	return code
}
