package client

import (
	"fmt"
	"os"
	"path/filepath"
)

type ValidationError struct {
	Arg   string
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Cause)
}

// ParseArgs cleans each path and checks that it names a readable regular file.
func ParseArgs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, &ValidationError{Arg: "<files>", Cause: "no files provided"}
	}

	out := make([]string, 0, len(args))
	for _, raw := range args {
		p := filepath.Clean(raw)
		info, err := os.Stat(p)
		if err != nil {
			return nil, &ValidationError{Arg: raw, Cause: "not found or not accessible"}
		}
		if !info.Mode().IsRegular() {
			return nil, &ValidationError{Arg: raw, Cause: "not a regular file"}
		}
		out = append(out, p)
	}

	return out, nil
}
