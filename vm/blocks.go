package vm

import "fmt"

// BlockIssue is a structural problem found without running the program.
type BlockIssue struct {
	Inst    Instruction
	IP      int
	Message string
}

func (b BlockIssue) String() string {
	return fmt.Sprintf("%s: %s", b.Inst.Pos, b.Message)
}

// CheckBlocks reports endif instructions with no open block and if/else
// blocks still open at the end of the program.
func (p Program) CheckBlocks() []BlockIssue {
	var issues []BlockIssue
	var open []int

	for i, in := range p {
		switch in.Kind {
		case KindIf, KindElse:
			open = append(open, i)
		case KindEndIf:
			if len(open) == 0 {
				issues = append(issues, BlockIssue{Inst: in, IP: i, Message: "endif without an open block"})
				continue
			}
			open = open[:len(open)-1]
		}
	}
	for _, i := range open {
		issues = append(issues, BlockIssue{
			Inst:    p[i],
			IP:      i,
			Message: fmt.Sprintf("%s block is never closed", p[i].Kind),
		})
	}
	return issues
}
