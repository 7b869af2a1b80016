package monitor

import (
	"strconv"
	"strings"
)

// parseAddr evaluates an address expression.
//
//	12, sp, here     number, register or current instruction
//	a+b, a-b         sum, difference
//	a,b              sum
//	[a,k]            a dereferenced through memory k times
//
// An expression that cannot be parsed is reported, and evaluates to 0.
func (mon *Monitor) parseAddr(text string) (addr uint16) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "-")
	cp := mon.emu.Cpu

	if strings.HasPrefix(text, "[") {
		end := strings.IndexByte(text, ']')
		if end < 0 {
			mon.printf("[Cannot parse address %s]\n", text)
			return
		}

		base, count, found := strings.Cut(text[1:end], ",")
		addr = mon.parseAddr(base)
		if found {
			for range mon.parseAddr(count) {
				addr = cp.Memory.Read(addr)
			}
		}

		rest := strings.TrimSpace(text[end+1:])
		if len(rest) > 1 && (rest[0] == ',' || rest[0] == '+') {
			addr += mon.parseAddr(rest[1:])
		}
		return
	}

	if first, rest, found := strings.Cut(text, ","); found {
		return mon.parseAddr(first) + mon.parseAddr(rest)
	}

	if strings.Contains(text, "+") {
		for _, part := range strings.Split(text, "+") {
			addr += mon.parseAddr(part)
		}
		return
	}

	if strings.Contains(text, "-") {
		parts := strings.Split(text, "-")
		addr = mon.parseAddr(parts[0])
		for _, part := range parts[1:] {
			addr -= mon.parseAddr(part)
		}
		return
	}

	switch strings.ToLower(text) {
	case "sp":
		return cp.Sp
	case "bp":
		return cp.Bp
	case "mp":
		return cp.Mp
	case "fp":
		return cp.Fp
	case "pc":
		return cp.Pc
	case "here", "instr":
		if cp.Pc >= 2 {
			return cp.Here()
		}
		return 0
	}

	value, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		mon.printf("[Cannot parse address %s]\n", text)
		return 0
	}

	return uint16(value)
}

// parseValue evaluates a decimal number, wrapped to 16 bits, or a 'c'
// character literal.
func (mon *Monitor) parseValue(text string) (value uint16) {
	switch {
	case len(text) > 0 && (text[0] == '-' || (text[0] >= '0' && text[0] <= '9')):
		v64, err := strconv.ParseInt(text, 10, 32)
		if err == nil {
			return uint16(v64)
		}
	case len(text) >= 2 && text[0] == '\'':
		return uint16(text[1])
	}

	mon.printf("Target Monitor: Invalid value \"%s\".\n", text)
	return 0
}

// parseBool accepts yes/no style words. Anything unknown is false.
func parseBool(text string) bool {
	switch strings.ToLower(text) {
	case "yes", "true", "t", "1":
		return true
	}
	return false
}
