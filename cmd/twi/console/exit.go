package console

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/twi"
)

// ExitResultBase offsets transaction results in process exit codes: a send
// that ends with NOT_FOUND exits with ExitResultBase+1.
const ExitResultBase = 10

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

// ExitResult turns a failed transaction into an exit code carrying its result.
func ExitResult(err error, msg string, args ...interface{}) cli.ExitCoder {
	r := twi.ResultOf(err)
	return cli.Exit(fmt.Sprintf("%s: %s (%s)", fmt.Sprintf(msg, args...), Red(r), err), ExitResultBase+int(r))
}
