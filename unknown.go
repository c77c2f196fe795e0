package main

import (
	"context"
)

const unknownCommand = `xio %s: unknown command
For a list of commands available, run 'xio help'.`

func unknown(ctx context.Context, cmd string) error {
	return usageError(unknownCommand, cmd)
}
