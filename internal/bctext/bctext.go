// Package bctext is the whole-function half of spec §6's -b textual
// bytecode format: internal/bytecode.FormatInstr/ParseInstr handle one
// instruction line at a time, but a complete Function also carries a
// constant pool, name/local tables, and a nested-function tree, none of
// which package bytecode can describe without importing package objects
// (which already imports bytecode the other way). This package sits
// above both and owns that assembly/disassembly.
package bctext

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitscript-run/mitscript/internal/bytecode"
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/value"
)

// Format renders fn and its nested functions as text, in a line-oriented
// format mirroring scm/printer.go's indent-by-nesting style: one
// directive per line, nested functions recursively bracketed by
// nested/endnested.
func Format(fn *objects.Function) string {
	var b strings.Builder
	formatFunc(&b, fn, 0)
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func formatFunc(b *strings.Builder, fn *objects.Function, depth int) {
	indent(b, depth)
	fmt.Fprintf(b, "func %d %s\n", fn.ParamCount, quoteIfEmpty(fn.Name))

	indent(b, depth+1)
	b.WriteString("names " + strings.Join(fn.Names, " ") + "\n")
	indent(b, depth+1)
	b.WriteString("locals " + strings.Join(fn.Locals, " ") + "\n")
	indent(b, depth+1)
	b.WriteString("captured " + boolsToStr(fn.Captured) + "\n")
	indent(b, depth+1)
	b.WriteString("localrefvars " + intsToStr(fn.LocalRefVars) + "\n")
	indent(b, depth+1)
	b.WriteString("freevars " + strings.Join(fn.FreeVars, " ") + "\n")

	indent(b, depth+1)
	b.WriteString("constants\n")
	for _, c := range fn.Constants {
		indent(b, depth+2)
		b.WriteString(formatConst(c) + "\n")
	}
	indent(b, depth+1)
	b.WriteString("endconstants\n")

	indent(b, depth+1)
	b.WriteString("nested\n")
	for _, n := range fn.Nested {
		formatFunc(b, objects.FunctionFromWord(n), depth+2)
	}
	indent(b, depth+1)
	b.WriteString("endnested\n")

	indent(b, depth+1)
	b.WriteString("instrs\n")
	for _, in := range fn.Instrs {
		indent(b, depth+2)
		b.WriteString(bytecode.FormatInstr(in) + "\n")
	}
	indent(b, depth+1)
	b.WriteString("endinstrs\n")

	indent(b, depth)
	b.WriteString("endfunc\n")
}

func quoteIfEmpty(s string) string {
	if s == "" {
		return "_"
	}
	return s
}

func boolsToStr(bs []bool) string {
	parts := make([]string, len(bs))
	for i, v := range bs {
		parts[i] = strconv.FormatBool(v)
	}
	return strings.Join(parts, " ")
}

func intsToStr(is []int) string {
	parts := make([]string, len(is))
	for i, v := range is {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func formatConst(w value.Word) string {
	switch value.TagOf(w) {
	case value.TagInt:
		return fmt.Sprintf("int %d", value.AsInt(w))
	case value.TagBool:
		return fmt.Sprintf("bool %t", value.AsBool(w))
	case value.TagStr:
		return "str " + strconv.Quote(value.StrGoString(w))
	default:
		return "none"
	}
}

// Parse reads Format's output back into a *objects.Function, registered
// on h. Returns an error on any malformed directive rather than raising,
// since this package has no langerr dependency — cmd/mitscript wraps the
// error before reporting it.
func Parse(h *heap.Heap, text string) (*objects.Function, error) {
	p := &textParser{sc: bufio.NewScanner(strings.NewReader(text)), h: h}
	p.sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	p.advance()
	fn, err := p.parseFunc()
	if err != nil {
		return nil, err
	}
	return fn, nil
}

type textParser struct {
	sc   *bufio.Scanner
	h    *heap.Heap
	line string
	ok   bool
}

func (p *textParser) advance() {
	for p.sc.Scan() {
		t := strings.TrimSpace(p.sc.Text())
		if t == "" {
			continue
		}
		p.line = t
		p.ok = true
		return
	}
	p.ok = false
}

func (p *textParser) expect(prefix string) (string, error) {
	if !p.ok {
		return "", fmt.Errorf("unexpected end of input, wanted %q", prefix)
	}
	if !strings.HasPrefix(p.line, prefix) {
		return "", fmt.Errorf("expected %q, got %q", prefix, p.line)
	}
	rest := strings.TrimSpace(strings.TrimPrefix(p.line, prefix))
	p.advance()
	return rest, nil
}

func (p *textParser) parseFunc() (*objects.Function, error) {
	header, err := p.expect("func")
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(header)
	if len(fields) < 1 {
		return nil, fmt.Errorf("func: missing param count")
	}
	paramCount, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, err
	}
	name := ""
	if len(fields) > 1 && fields[1] != "_" {
		name = fields[1]
	}
	fn := objects.NewFunction(p.h, name, paramCount)

	namesLine, err := p.expect("names")
	if err != nil {
		return nil, err
	}
	fn.Names = fields2(namesLine)

	localsLine, err := p.expect("locals")
	if err != nil {
		return nil, err
	}
	fn.Locals = fields2(localsLine)

	capturedLine, err := p.expect("captured")
	if err != nil {
		return nil, err
	}
	for _, s := range fields2(capturedLine) {
		fn.Captured = append(fn.Captured, s == "true")
	}

	refVarsLine, err := p.expect("localrefvars")
	if err != nil {
		return nil, err
	}
	for _, s := range fields2(refVarsLine) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		fn.LocalRefVars = append(fn.LocalRefVars, n)
	}

	freeVarsLine, err := p.expect("freevars")
	if err != nil {
		return nil, err
	}
	fn.FreeVars = fields2(freeVarsLine)

	if _, err := p.expect("constants"); err != nil {
		return nil, err
	}
	for p.ok && p.line != "endconstants" {
		c, err := parseConst(p.h, p.line)
		if err != nil {
			return nil, err
		}
		fn.Constants = append(fn.Constants, c)
		p.advance()
	}
	if _, err := p.expect("endconstants"); err != nil {
		return nil, err
	}

	if _, err := p.expect("nested"); err != nil {
		return nil, err
	}
	for p.ok && p.line != "endnested" {
		nested, err := p.parseFunc()
		if err != nil {
			return nil, err
		}
		fn.Nested = append(fn.Nested, nested.Word())
	}
	if _, err := p.expect("endnested"); err != nil {
		return nil, err
	}

	if _, err := p.expect("instrs"); err != nil {
		return nil, err
	}
	for p.ok && p.line != "endinstrs" {
		in, err := bytecode.ParseInstr(p.line)
		if err != nil {
			return nil, err
		}
		if bind, ok := in.(bytecode.Bind); ok {
			fn.Labels[bind.Label] = len(fn.Instrs)
		}
		fn.Instrs = append(fn.Instrs, in)
		p.advance()
	}
	if _, err := p.expect("endinstrs"); err != nil {
		return nil, err
	}

	if _, err := p.expect("endfunc"); err != nil {
		return nil, err
	}
	return fn, nil
}

func fields2(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

func parseConst(h *heap.Heap, line string) (value.Word, error) {
	if line == "none" {
		return objects.NewNone(h), nil
	}
	fields := strings.SplitN(line, " ", 2)
	if len(fields) < 2 {
		return value.Word{}, fmt.Errorf("malformed constant line %q", line)
	}
	switch fields[0] {
	case "int":
		n, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 32)
		if err != nil {
			return value.Word{}, err
		}
		return value.MakeInt(int32(n)), nil
	case "bool":
		return value.MakeBool(strings.TrimSpace(fields[1]) == "true"), nil
	case "str":
		s, err := strconv.Unquote(strings.TrimSpace(fields[1]))
		if err != nil {
			return value.Word{}, err
		}
		return value.MakeStrFromGoString(s), nil
	case "none":
		return value.Word{}, fmt.Errorf("none constants must be resolved by the caller (no heap handle here)")
	default:
		return value.Word{}, fmt.Errorf("unknown constant kind %q", fields[0])
	}
}
