package asm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/risor-io/pathprof/errz"
	"github.com/risor-io/pathprof/op"
)

const countdown = `
name: countdown
globals: 1
functions:
  - name: helper
    params: 1
    results: 1
    code: |
      local.get 0
      end
  - name: main
    locals: 1
    code: |
      i64.const 0x3     ; start value
      local.set 0
      loop
        local.get 0
        i64.eqz
        br_if 1
        local.get 0
        call helper
        i64.const -1
        i64.add
        local.set 0
        br 0
      end
      end
`

func TestLoad(t *testing.T) {
	program, err := Load([]byte(countdown))
	require.Nil(t, err)
	require.Nil(t, program.Validate())

	require.Equal(t, "countdown", program.Name())
	require.Equal(t, 2, program.FunctionCount())
	require.Equal(t, 1, program.GlobalCount())
	require.Equal(t, uint32(1), program.Entry())

	main := program.FunctionAt(1)
	require.Equal(t, "main", main.Name())
	require.Equal(t, 1, main.LocalCount())
	require.Equal(t, 14, main.InstructionCount())

	first := main.InstructionAt(0)
	require.Equal(t, op.Const, first.Code)
	require.Equal(t, []int64{3}, first.Args)
	require.Equal(t, 1, main.LineAt(0))
	require.Equal(t, "i64.const 0x3", main.SourceAt(0))

	call := main.InstructionAt(7)
	require.Equal(t, op.Call, call.Code)
	require.Equal(t, int64(0), call.Arg(0))

	dec := main.InstructionAt(8)
	require.Equal(t, int64(-1), dec.Arg(0))
}

func TestLoadFileDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.yaml")
	require.Nil(t, os.WriteFile(path, []byte("functions:\n  - code: end\n"), 0o644))
	program, err := LoadFile(path)
	require.Nil(t, err)
	require.Equal(t, path, program.Name())
	require.Equal(t, uint32(0), program.Entry())
	require.Equal(t, "func[0]", program.FunctionAt(0).Name())
}

func TestEntryByIndex(t *testing.T) {
	program, err := Assemble("p", "1", 0,
		Function{Name: "a", Code: "end"},
		Function{Name: "b", Code: "end"},
	)
	require.Nil(t, err)
	require.Equal(t, uint32(1), program.Entry())

	_, err = Assemble("p", "nope", 0, Function{Code: "end"})
	require.NotNil(t, err)
	require.Contains(t, err.Error(), `entry function "nope" not found`)
}

func TestSyntaxErrors(t *testing.T) {
	_, err := Assemble("p", "", 0,
		Function{Name: "main", Code: "jump 3\ni64.const abc\ncall missing\nend"},
		Function{Name: "main", Code: "end"},
	)
	require.NotNil(t, err)
	msg := err.Error()
	require.Contains(t, msg, `unknown opcode "jump" (main:1)`)
	require.Contains(t, msg, `invalid operand "abc" (main:2)`)
	require.Contains(t, msg, `unknown function "missing" (main:3)`)
	require.Contains(t, msg, `duplicate function name "main"`)
}

func TestMalformedYAML(t *testing.T) {
	_, err := Load([]byte("functions: [\n"))
	require.NotNil(t, err)
	var structured *errz.StructuredError
	require.True(t, errors.As(err, &structured))
	require.Equal(t, errz.ErrSyntax, structured.Kind)

	_, err = Load([]byte("functions:\n  - name: f\n    bogus: 1\n    code: end\n"))
	require.NotNil(t, err)
}
