package compiler

import "fmt"

// ErrorKind enumerates the compile-time error taxonomy. Every one of these
// is fatal to compilation; none are recoverable mid-program.
type ErrorKind int

const (
	UnknownIdentifier ErrorKind = iota
	InvalidSet
	InvalidVarReference
	InvalidVarArg
	InvalidDoReference
	DuplicateHandler
	DuplicateKey
	InvalidSetBinding
	ExpectedPairGotKey
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownIdentifier:
		return "UnknownIdentifier"
	case InvalidSet:
		return "InvalidSet"
	case InvalidVarReference:
		return "InvalidVarReference"
	case InvalidVarArg:
		return "InvalidVarArg"
	case InvalidDoReference:
		return "InvalidDoReference"
	case DuplicateHandler:
		return "DuplicateHandler"
	case DuplicateKey:
		return "DuplicateKey"
	case InvalidSetBinding:
		return "InvalidSetBinding"
	case ExpectedPairGotKey:
		return "ExpectedPairGotKey"
	default:
		return "UnknownError"
	}
}

// CompileError is the error type returned by every Compiler method that can
// fail. Detail, when non-empty, names the identifier or selector involved.
type CompileError struct {
	Kind   ErrorKind
	Detail string
}

func (e *CompileError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func newErr(kind ErrorKind, detail string) *CompileError {
	return &CompileError{Kind: kind, Detail: detail}
}
