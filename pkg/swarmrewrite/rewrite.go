// Package swarmrewrite turns one local compiler invocation into the
// two argument vectors swarmbuild needs: a local preprocess command
// and a remote compile command, or signals that the invocation should
// simply bypass swarm entirely. Grounded byte-for-byte on
// original_source/swarm_cc.cpp's main().
package swarmrewrite

import (
	"path"
	"strings"

	"github.com/xavarteaga/swarm/pkg/swarmargs"
)

// sourcePattern matches a C/C++ translation unit by extension.
const sourcePattern = `(\.c$)|(\.cpp$)|(\.cc$)`

// objectPattern matches a compiled object target by extension.
const objectPattern = `\.o$`

// RemoteBase is the local staging root both the preprocess output and
// the remote layout are rooted under, matching SWARM_REMOTE_PATH.
const RemoteBase = "/tmp/swarm/"

// Plan is the result of rewriting one compiler invocation: either
// Bypass is set and the caller should run the original command
// unmodified, or PreprocessArgs/CompileArgs are populated.
type Plan struct {
	Bypass bool

	SourceFile  string
	ObjectFile  string
	LocalPreprocessTarget string
	RemoteBasePath        string
	RemoteObjectTarget    string
	RemotePreprocessTarget string

	PreprocessArgs *swarmargs.Vector
	CompileArgs    *swarmargs.Vector
}

// Build classifies argv and produces a Plan. localHostname names this
// machine, used to namespace the remote staging directory the way the
// original's remote_path_base does.
func Build(argv []string, localHostname string) (*Plan, error) {
	args, err := swarmargs.New(argv)
	if err != nil {
		return nil, err
	}

	if err := args.DeleteMatching("ftrivial", 1); err != nil {
		return nil, err
	}

	sourceFile, err := args.FirstMatching(sourcePattern, 0)
	if err != nil {
		return nil, err
	}
	objectFile, err := args.FirstMatching(objectPattern, 0)
	if err != nil {
		return nil, err
	}

	if sourceFile == "" || objectFile == "" {
		return &Plan{Bypass: true}, nil
	}

	localPreprocessTarget := path.Join(RemoteBase, sourceFile)
	remoteBasePath := path.Join(RemoteBase, localHostname) + "/"
	remoteObjectTarget := path.Join(remoteBasePath, objectFile)
	remotePreprocessTarget := path.Join(remoteBasePath, sourceFile)

	preprocessArgs := args.Clone()
	if err := preprocessArgs.SubstituteAllMatching(objectPattern, localPreprocessTarget, 0); err != nil {
		return nil, err
	}
	preprocessArgs.Append("-E")

	compileArgs := args.Clone()
	if err := compileArgs.DeleteMatching(`(\-MT)|(\-MF)|(\-include)|(\-I$)`, 2); err != nil {
		return nil, err
	}
	if err := compileArgs.DeleteMatching(`(\-D)|(\-I)|(\-M)`, 1); err != nil {
		return nil, err
	}
	if err := compileArgs.SubstituteAllMatching(objectPattern, remoteObjectTarget, 0); err != nil {
		return nil, err
	}
	if err := compileArgs.SubstituteAllMatching(sourcePattern, remotePreprocessTarget, 0); err != nil {
		return nil, err
	}

	return &Plan{
		SourceFile:             sourceFile,
		ObjectFile:             objectFile,
		LocalPreprocessTarget:  localPreprocessTarget,
		RemoteBasePath:         remoteBasePath,
		RemoteObjectTarget:     remoteObjectTarget,
		RemotePreprocessTarget: remotePreprocessTarget,
		PreprocessArgs:         preprocessArgs,
		CompileArgs:            compileArgs,
	}, nil
}

// LocalMkdirTarget returns the directory that must exist locally
// before the preprocess step writes its output.
func (p *Plan) LocalMkdirTarget() string {
	return path.Dir(p.LocalPreprocessTarget)
}

// IsSupportedExtension reports whether name carries a recognized C/C++
// source suffix, mirroring the original's static supported_languages
// set (by extension rather than by -x language flag, which swarm-cc
// never inspects).
func IsSupportedExtension(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".c", ".cpp", ".cc":
		return true
	default:
		return false
	}
}
