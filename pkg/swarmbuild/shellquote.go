package swarmbuild

import "github.com/alessio/shellescape"

// shellJoin re-quotes a bypassed argv for system()-style shell
// execution, mirroring the teacher's use of shellescape.QuoteCommand
// for re-serializing a captured argv.
func shellJoin(argv []string) string {
	return shellescape.QuoteCommand(argv)
}
