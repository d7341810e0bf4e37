package engine

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// Fragments are wrapped in a function so that return statements are legal
// and the produced value is the function's return value.
const (
	fragmentName   = "fragment.js"
	wrapperPrefix  = "(function() {\n"
	wrapperSuffix  = "\n})"
	wrapperInvoked = "()"
)

// compileFragment validates and lowers a fragment. It is a pure function of
// the source text: parse errors are reported verbatim as malformed source, a
// fragment that can never produce a result is rejected before any execution
// resources exist, and a fragment that parses but cannot be lowered to
// bytecode is a permanent lowering failure.
//
// The result check inspects only the top-level statement sequence. A
// fragment whose top-level statements are all simple non-return statements
// is rejected, because no execution path can produce a value. A compound
// top-level statement (a loop, conditional, try or switch) passes, since a
// return may sit inside one of its branches; such a fragment may still
// finish without reaching a return, in which case the run completes with a
// null result, or it may never finish and is torn down at the deadline.
func compileFragment(source string) (*goja.Program, *Error) {
	wrapped := wrapperPrefix + source + wrapperSuffix

	prog, err := parser.ParseFile(nil, fragmentName, wrapped, 0)
	if err != nil {
		return nil, newError(KindMalformedSource, "%v", err)
	}

	body := fragmentBody(prog)
	if body == nil || !mayProduceResult(body.List) {
		return nil, newError(KindMissingResult,
			"fragment must contain a return statement that produces the result")
	}

	compiled, err := goja.Compile(fragmentName, wrapped+wrapperInvoked, false)
	if err != nil {
		return nil, newError(KindLowering, "%v", err)
	}
	return compiled, nil
}

// fragmentBody digs the wrapper function's statement list out of the parsed
// program.
func fragmentBody(prog *ast.Program) *ast.BlockStatement {
	if len(prog.Body) == 0 {
		return nil
	}
	exprStmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil
	}
	fn, ok := exprStmt.Expression.(*ast.FunctionLiteral)
	if !ok {
		return nil
	}
	return fn.Body
}

// mayProduceResult reports whether any top-level statement is a return or a
// compound statement whose interior could hold one. Simple statements such
// as declarations, expression statements and inner function definitions
// cannot yield the fragment's result, so a sequence made only of those is
// rejected without looking inside function literals.
func mayProduceResult(stmts []ast.Statement) bool {
	for _, stmt := range stmts {
		switch stmt.(type) {
		case *ast.ReturnStatement,
			*ast.BlockStatement,
			*ast.IfStatement,
			*ast.ForStatement,
			*ast.ForInStatement,
			*ast.ForOfStatement,
			*ast.WhileStatement,
			*ast.DoWhileStatement,
			*ast.LabelledStatement,
			*ast.WithStatement,
			*ast.TryStatement,
			*ast.SwitchStatement:
			return true
		}
	}
	return false
}
