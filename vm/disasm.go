package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (p Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d instructions\n", len(p)))

	depth := 0
	for i, in := range p {
		if in.Kind == KindEndIf && depth > 0 {
			depth--
		}
		sb.WriteString(fmt.Sprintf("%04d  %-7s %s%s\n", i, in.Pos, strings.Repeat("  ", depth), describe(in)))
		if in.Kind == KindIf || in.Kind == KindElse {
			depth++
		}
	}
	return sb.String()
}

func describe(in Instruction) string {
	info := GetKindInfo(in.Kind)
	if in.Kind == KindPush {
		if validRune(in.Value) && in.Value >= 0x20 && in.Value < 0x7F {
			return fmt.Sprintf("%-16s ; %q", in, rune(in.Value))
		}
		return in.String()
	}
	return fmt.Sprintf("%-16s ; %c", info.Name, info.Symbol)
}
