// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = func() (equ map[string]string) {
	equ = maps.Clone(_cpu_defines)
	equ["LINENO"] = "0"
	return
}()

// opcodeMap maps upper case mnemonics to opcodes.
var opcodeMap = func() (ops map[string]Opcode) {
	ops = make(map[string]Opcode)
	for n := range 256 {
		op := Opcode(n)
		if op.Valid() {
			ops[op.String()] = op
		}
	}
	return
}()

// registerMap maps register names to register ids.
var registerMap = map[string]Register{
	"BP": REG_BP,
	"FP": REG_FP,
	"MP": REG_MP,
	"SP": REG_SP,
}

// Assembler is a single pass assembler for Target object code.
//
// Each line is 'ADDR OPCODE [OPERANDS]'. Operands take the forms
// 'n', 'REG', 'REG, n' and 'n,[REG, k]'. Lines that do not start with
// an address are ignored, and '*' starts a comment.
//
// Numbers may be written as .equ names, 'c' character literals, or
// $(...) expressions evaluated at assembly time.
type Assembler struct {
	Verbose bool      // If set, verbosely logs the assembler actions.
	Echo    io.Writer // If set, each assembled instruction is written here.
	Lines   []Line    // List of assembled lines.

	predefine map[string]string // Predefines
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a number, wrapped to 16 bits.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	base := 10
	digits := word
	if strings.HasPrefix(word, "0x") || strings.HasPrefix(word, "0X") {
		base = 16
		digits = word[2:]
	}

	v64, err := strconv.ParseInt(digits, base, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = uint16(v64)
	return
}

// registerOf returns the id of a register name.
func (asm *Assembler) registerOf(word string) (reg Register, err error) {
	reg, ok := registerMap[word]
	if !ok {
		err = ErrParseRegister(word)
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value16 uint16
		value16, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(int(value16))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// stripComment removes a '*' comment. A '*' inside a $(...) expression
// or a character literal is not a comment.
func stripComment(line string) string {
	depth := 0
	for n := 0; n < len(line); n++ {
		switch {
		case strings.HasPrefix(line[n:], "$("):
			depth++
			n++
		case line[n] == '(' && depth > 0:
			depth++
		case line[n] == ')' && depth > 0:
			depth--
		case line[n] == '\'' && depth == 0:
			// Skip character literals.
			if end := strings.IndexByte(line[n+1:], '\''); end >= 0 {
				n += end + 1
			}
		case line[n] == '*' && depth == 0:
			return line[:n]
		}
	}
	return line
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reIdentifier = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// expandLine substitutes character literals, $() expressions and equates.
func (asm *Assembler) expandLine(line string, lineno int) (out string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%d", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	// Replace equates
	out = reIdentifier.ReplaceAllStringFunc(line, func(word string) string {
		equate, ok := asm.Equate[word]
		if ok && word != "LINENO" {
			return equate
		}
		return word
	})

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Lines = asm.Lines[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.ReplaceAll(text, "\t", " ")
		line = strings.TrimSpace(stripComment(line))

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		// .equ CONST VALUE
		if words[0] == ".equ" {
			if len(words) < 3 {
				err = ErrEquateSyntax
				return
			}
			_, ok := asm.Equate[words[1]]
			if ok {
				err = ErrEquateDuplicate
				return
			}
			var value string
			value, err = asm.expandLine(strings.Join(words[2:], " "), lineno)
			if err != nil {
				return
			}
			asm.Equate[words[1]] = value
			continue
		}

		// Only lines starting with an address are assembled.
		if line[0] < '0' || line[0] > '9' {
			continue
		}

		var expanded string
		expanded, err = asm.expandLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseLine(expanded, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	prog = &Program{
		Lines: slices.Clone(asm.Lines),
	}

	return
}

// parseLine assembles an expanded 'ADDR OPCODE [OPERANDS]' line.
func (asm *Assembler) parseLine(line string, lineno int) (err error) {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		err = ErrAddressMissing
		return
	}
	if len(fields) < 2 {
		err = ErrOpcodeMissing
		return
	}

	words := slices.Clone(fields[:2])
	if len(fields) > 2 {
		words = append(words, strings.Join(fields[2:], " "))
	}

	addr, err := asm.valueOf(words[0])
	if err != nil {
		return
	}

	op, ok := opcodeMap[strings.ToUpper(strings.TrimSpace(words[1]))]
	if !ok {
		err = ErrParseOpcode(words[1])
		return
	}

	var operands string
	if len(words) > 2 {
		operands = words[2]
	}

	operand, reg, indirections, err := asm.parseOperands(operands)
	if err != nil {
		return
	}

	code := MakeCode(op, reg, indirections, operand)

	if asm.Echo != nil {
		fmt.Fprintf(asm.Echo, "%d:\t%v\n", addr, code)
	}

	asm.Lines = append(asm.Lines, Line{LineNo: lineno, Addr: addr, Words: words, Code: code})

	return
}

// parseOperands parses the operands of an instruction. The accepted
// forms are 'n', 'REG', 'REG, n' and 'n,[REG, k]'.
func (asm *Assembler) parseOperands(text string) (operand uint16, reg Register, indirections uint8, err error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return
	}

	// Leading operand
	if (text[0] >= '0' && text[0] <= '9') || text[0] == '-' {
		first, rest, found := strings.Cut(text, ",")
		operand, err = asm.valueOf(strings.TrimSpace(first))
		if err != nil || !found {
			return
		}
		text = strings.TrimSpace(rest)
	}

	if !strings.Contains(text, ",") {
		reg, err = asm.registerOf(text)
		return
	}

	name, value, _ := strings.Cut(strings.Trim(text, "[]"), ",")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	reg, err = asm.registerOf(name)
	if err != nil {
		return
	}

	if strings.HasPrefix(text, "[") {
		// [REG, k]
		var count uint64
		count, err = strconv.ParseUint(value, 10, 8)
		if err != nil || count > INDIRECTIONS_MAX {
			err = ErrOperandInvalid
			return
		}
		indirections = uint8(count)
	} else {
		// REG, n
		operand, err = asm.valueOf(value)
	}

	return
}
