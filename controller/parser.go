package controller

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/alecthomas/participle/v2/lexer/stateful"
	"github.com/zircon-rv/zircon/event"
)

var (
	controlLexer = stateful.MustSimple([]stateful.Rule{
		{Name: "Arrow", Pattern: `->`, Action: nil},
		{Name: "Equals", Pattern: `==`, Action: nil},
		{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|0[bB][01]+|\d+`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "Punct", Pattern: `[:,\[\];]`, Action: nil},
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`, Action: nil},
	})
	controlParser = participle.MustBuild(&commandList{},
		participle.Lexer(controlLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(4),
	)
)

// Parse parses one or more control commands separated by ';'. The name is used in error messages.
//
//	command   := event ("," condition)* "->" action ("," action)*
//	event     := subsystem ":" name
//	condition := operand "==" number
//	operand   := "pc" | CLASS "[" number "]" | "mem" "[" number "]"
//	action    := "stop" | "disasm" | "dump" CLASS | "dump" "pc" | "print" operand
func Parse(name string, reader io.Reader) ([]*Command, error) {
	ast := &commandList{}
	err := controlParser.Parse(name, reader, ast)
	if err != nil {
		return nil, fmt.Errorf("error while parsing: %w", err)
	}
	if len(ast.Commands) == 0 {
		return nil, fmt.Errorf("%s: no commands", name)
	}

	cmds := make([]*Command, 0, len(ast.Commands))
	for _, c := range ast.Commands {
		cmd, err := c.toCommand()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Pos, err)
		}
		cmds = append(cmds, cmd)
	}

	return cmds, nil
}

// ParseStrings parses every string as a separate list of commands.
func ParseStrings(sources ...string) ([]*Command, error) {
	var cmds []*Command
	for i, src := range sources {
		parsed, err := Parse(fmt.Sprintf("control[%d]", i), strings.NewReader(src))
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, parsed...)
	}

	return cmds, nil
}

type commandList struct {
	Commands []*commandAST `parser:"( @@ ';'? )+"`
}

type commandAST struct {
	Pos lexer.Position

	Subsystem  string          `parser:"@Ident ':'"`
	Event      string          `parser:"@Ident"`
	Conditions []*conditionAST `parser:"( ',' @@ )* Arrow"`
	Actions    []*actionAST    `parser:"@@ ( ',' @@ )*"`
}

func (c *commandAST) toCommand() (*Command, error) {
	typ, err := event.ParseType(c.Subsystem + ":" + c.Event)
	if err != nil {
		return nil, err
	}

	cmd := &Command{Event: typ}
	for _, cond := range c.Conditions {
		op, err := cond.Operand.toOperand()
		if err != nil {
			return nil, err
		}
		cmd.Conditions = append(cmd.Conditions, &Equals{Operand: op, Value: uint64(cond.Value)})
	}

	for _, a := range c.Actions {
		action, err := a.toAction()
		if err != nil {
			return nil, err
		}
		cmd.Actions = append(cmd.Actions, action)
	}

	return cmd, nil
}

type conditionAST struct {
	Operand *operandAST `parser:"@@ Equals"`
	Value   number      `parser:"@Number"`
}

type operandAST struct {
	Name  string  `parser:"@Ident"`
	Index *number `parser:"( '[' @Number ']' )?"`
}

func (o *operandAST) toOperand() (Operand, error) {
	name := strings.ToLower(o.Name)
	switch {
	case name == "pc" && o.Index == nil:
		return PC{}, nil
	case name == "pc":
		return nil, fmt.Errorf("pc can't be indexed")
	case o.Index == nil:
		return nil, fmt.Errorf("'%s' needs an index", o.Name)
	case name == "mem":
		return Memory{Addr: uint64(*o.Index)}, nil
	}

	return Register{Class: strings.ToUpper(o.Name), Index: uint(*o.Index)}, nil
}

type actionAST struct {
	Stop   bool        `parser:"  @'stop'"`
	Disasm bool        `parser:"| @'disasm'"`
	Dump   string      `parser:"| 'dump' @Ident"`
	Print  *operandAST `parser:"| 'print' @@"`
}

func (a *actionAST) toAction() (Action, error) {
	switch {
	case a.Stop:
		return Stop{}, nil
	case a.Disasm:
		return Disassemble{}, nil
	case a.Dump != "":
		if strings.EqualFold(a.Dump, "pc") {
			return DumpPC{}, nil
		}
		return DumpRegisters{Class: strings.ToUpper(a.Dump)}, nil
	case a.Print != nil:
		op, err := a.Print.toOperand()
		if err != nil {
			return nil, err
		}
		return Print{Operand: op}, nil
	}

	return nil, fmt.Errorf("empty action")
}

// number accepts decimal, 0x prefixed hexadecimal and 0b prefixed binary numbers.
type number uint64

func (n *number) Capture(values []string) error {
	s := strings.ToLower(strings.Join(values, ""))

	base := 10
	switch {
	case strings.HasPrefix(s, "0x"):
		base = 16
		s = s[2:]
	case strings.HasPrefix(s, "0b"):
		base = 2
		s = s[2:]
	}

	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return err
	}

	*n = number(v)

	return nil
}
