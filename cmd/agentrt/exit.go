package main

// exitCode classifies a command failure into the codes spec.md §6
// assigns: 0 success, 2 configuration error, 3 migration failure, 1
// other fatal.
type exitCode int

const (
	exitOther       exitCode = 1
	exitConfigError exitCode = 2
	exitMigration   exitCode = 3
)

// codedError wraps a command error with the exit code it should produce,
// letting serve/migrate/health signal a specific failure class back
// through cobra's plain error return without cobra itself knowing about
// exit codes.
type codedError struct {
	code exitCode
	err  error
}

func (c *codedError) Error() string { return c.err.Error() }
func (c *codedError) Unwrap() error { return c.err }

func configErr(err error) error    { return &codedError{code: exitConfigError, err: err} }
func migrationErr(err error) error { return &codedError{code: exitMigration, err: err} }

func exitCodeFor(err error) int {
	if ce, ok := err.(*codedError); ok {
		return int(ce.code)
	}
	return int(exitOther)
}
