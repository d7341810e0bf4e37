package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFragmentAcceptsTopLevelReturn(t *testing.T) {
	prog, err := compileFragment("return 1 + 1;")
	require.Nil(t, err)
	assert.NotNil(t, prog)
}

func TestCompileFragmentAcceptsNestedReturn(t *testing.T) {
	cases := map[string]string{
		"conditional": `if (x > 1) { return "big"; }`,
		"loop":        `for (let i = 0; i < 3; i++) { return i; }`,
		"while":       `while (true) { return 1; }`,
		"try":         `try { return f(); } catch (e) {}`,
		"catch":       `try { f(); } catch (e) { return e; }`,
		"switch":      `switch (x) { case 1: return "one"; }`,
		"else branch": `if (x) {} else { return 2; }`,
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			prog, err := compileFragment(source)
			require.Nil(t, err, "fragment should validate: %s", source)
			assert.NotNil(t, prog)
		})
	}
}

func TestCompileFragmentAcceptsCompoundWithoutReturn(t *testing.T) {
	// Compound top-level statements pass validation even when no return is
	// visible: the value may be produced inside a branch, or the fragment
	// may run until the deadline tears it down.
	cases := map[string]string{
		"infinite loop":  `while(true){}`,
		"bare for":       `for (;;) {}`,
		"empty branches": `if (x) {} else {}`,
		"try only":       `try { f(); } catch (e) {}`,
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			prog, err := compileFragment(source)
			require.Nil(t, err, "fragment should validate: %s", source)
			assert.NotNil(t, prog)
		})
	}
}

func TestCompileFragmentRejectsMissingReturn(t *testing.T) {
	cases := map[string]string{
		"assignment only":  "const x = 5;",
		"empty":            "",
		"call only":        `console.log("hi");`,
		"inner function":   `function f() { return 1; } f();`,
		"arrow assignment": `const f = () => 1; f();`,
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			prog, err := compileFragment(source)
			require.NotNil(t, err)
			assert.Nil(t, prog)
			assert.Equal(t, KindMissingResult, err.Kind)
		})
	}
}

func TestCompileFragmentReportsLoweringFailure(t *testing.T) {
	// Duplicate lexical declarations parse but fail bytecode generation.
	prog, err := compileFragment("const x = 1; const x = 2; return x;")
	require.NotNil(t, err)
	assert.Nil(t, prog)
	assert.Equal(t, KindLowering, err.Kind)
	assert.NotEmpty(t, err.Message)
}

func TestCompileFragmentRejectsSyntaxErrors(t *testing.T) {
	cases := map[string]string{
		"dangling operator": "return 1 +;",
		"unclosed brace":    "if (true { return 1; }",
		"bad keyword":       "retrun 1 1;",
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			prog, err := compileFragment(source)
			require.NotNil(t, err)
			assert.Nil(t, prog)
			assert.Equal(t, KindMalformedSource, err.Kind)
			assert.NotEmpty(t, err.Message)
		})
	}
}
