package cfg

// block is one maximal straight-line run of instructions.
type block struct {
	start, end int
	instrs     []instr
	preds      []int // predecessor block start offsets, in discovery order
	processed  bool
	entryStack []*Node
	exitStack  []*Node
	firstNode  *Node
	lastNode   *Node
}

type pendingData struct {
	phi       *Node
	slotIndex int
	predStart int
}

type pendingControl struct {
	node      *Node
	index     int
	predStart int
}

// Build decodes code and reconstructs its control-flow graph, inserting
// phi nodes at every join a live operand-stack value crosses (§4.6).
//
// Blocks are visited in ascending start-offset order. A predecessor
// reached only by a backward branch (a loop) is therefore not yet
// processed when its successor is first visited; phi nodes created in
// that case get their missing incoming edges — and a join's missing
// control edges — patched in a final resolution pass once every block
// has run, the "two-pass, incomplete phi" construction this package is
// built around.
func Build(code []byte) (*Graph, error) {
	instrs, err := decode(code)
	if err != nil {
		return nil, err
	}
	if len(instrs) == 0 {
		return &Graph{}, nil
	}

	leaders := map[int]bool{instrs[0].offset: true}
	for _, in := range instrs {
		if in.op == opDoSpecial {
			switch in.sp {
			case specialBranch, specialBranchIfTrue, specialBranchIfFalse:
				leaders[in.target] = true
			}
			if in.isTerminator() && in.next < len(code) {
				leaders[in.next] = true
			}
		}
	}

	var starts []int
	for off := range leaders {
		starts = append(starts, off)
	}
	sortInts(starts)

	blocks := make([]*block, len(starts))
	byStart := make(map[int]*block, len(starts))
	for i, s := range starts {
		b := &block{start: s}
		blocks[i] = b
		byStart[s] = b
	}
	for i, b := range blocks {
		if i+1 < len(blocks) {
			b.end = blocks[i+1].start
		} else {
			b.end = len(code)
		}
	}
	blockFor := func(offset int) *block {
		for i := len(starts) - 1; i >= 0; i-- {
			if starts[i] <= offset {
				return byStart[starts[i]]
			}
		}
		return nil
	}
	for _, in := range instrs {
		b := blockFor(in.offset)
		b.instrs = append(b.instrs, in)
	}

	addPred := func(succStart, predStart int) {
		succ, ok := byStart[succStart]
		if !ok {
			return
		}
		for _, p := range succ.preds {
			if p == predStart {
				return
			}
		}
		succ.preds = append(succ.preds, predStart)
	}
	for _, b := range blocks {
		if len(b.instrs) == 0 {
			continue
		}
		last := b.instrs[len(b.instrs)-1]
		if last.op == opDoSpecial {
			switch last.sp {
			case specialBranch, specialBranchIfTrue, specialBranchIfFalse:
				addPred(last.target, b.start)
			}
		}
		if last.fallsThrough() && last.next < len(code) {
			if leaders[last.next] {
				addPred(last.next, b.start)
			}
		}
	}

	g := &Graph{}
	var pendingD []pendingData
	var pendingC []pendingControl

	for _, b := range blocks {
		if err := processBlock(g, b, byStart, &pendingD, &pendingC); err != nil {
			return nil, err
		}
	}

	for _, p := range pendingD {
		pred := byStart[p.predStart]
		p.phi.DataIn[p.phi.pendingIndex[p.predStart]] = pred.exitStack[p.slotIndex]
	}
	for _, p := range pendingC {
		pred := byStart[p.predStart]
		p.node.ControlIn[p.index] = pred.lastNode
	}

	g.Entry = blocks[0].firstNode
	for _, b := range blocks {
		if len(b.instrs) == 0 {
			continue
		}
		last := b.instrs[len(b.instrs)-1]
		if last.op == opDoSpecial {
			switch last.sp {
			case specialSelfReturn, specialStackReturn, specialBlockReturn:
				g.Exits = append(g.Exits, b.lastNode)
			}
		}
	}
	if len(g.Exits) == 0 {
		if last := blocks[len(blocks)-1]; last.lastNode != nil {
			g.Exits = append(g.Exits, last.lastNode)
		}
	}
	return g, nil
}

func processBlock(g *Graph, b *block, byStart map[int]*block, pendingD *[]pendingData, pendingC *[]pendingControl) error {
	var stack []*Node

	switch len(b.preds) {
	case 0:
		stack = nil
	case 1:
		pred := byStart[b.preds[0]]
		if pred.processed {
			stack = append([]*Node{}, pred.exitStack...)
		} else {
			stack = makePhiStack(g, b, byStart, pendingD)
		}
	default:
		stack = makePhiStack(g, b, byStart, pendingD)
	}
	b.entryStack = append([]*Node{}, stack...)

	var controlIn []*Node
	if len(b.preds) > 0 {
		controlIn = make([]*Node, len(b.preds))
	}

	for idx, in := range b.instrs {
		node, err := stepInstr(g, in, &stack)
		if err != nil {
			return err
		}
		if idx == 0 && controlIn != nil {
			node.ControlIn = controlIn
			for i, ps := range b.preds {
				pred := byStart[ps]
				if pred.processed {
					controlIn[i] = pred.lastNode
				} else {
					*pendingC = append(*pendingC, pendingControl{node: node, index: i, predStart: ps})
				}
			}
		}
		if b.firstNode == nil {
			b.firstNode = node
		}
		b.lastNode = node
	}
	b.exitStack = stack
	b.processed = true
	return nil
}

func guessDepth(byStart map[int]*block, preds []int) int {
	for _, p := range preds {
		pred := byStart[p]
		if pred.processed {
			return len(pred.exitStack)
		}
	}
	return 0
}

func makePhiStack(g *Graph, b *block, byStart map[int]*block, pendingD *[]pendingData) []*Node {
	depth := guessDepth(byStart, b.preds)
	stack := make([]*Node, depth)
	for slot := 0; slot < depth; slot++ {
		phi := g.newNode(KindPhi)
		phi.DataIn = make([]*Node, len(b.preds))
		phi.pendingIndex = make(map[int]int, len(b.preds))
		for i, ps := range b.preds {
			phi.pendingIndex[ps] = i
			pred := byStart[ps]
			if pred.processed {
				phi.DataIn[i] = pred.exitStack[slot]
			} else {
				*pendingD = append(*pendingD, pendingData{phi: phi, slotIndex: slot, predStart: ps})
			}
		}
		stack[slot] = phi
	}
	return stack
}

// stepInstr applies one instruction's stack effect, creating and
// returning its Node.
func stepInstr(g *Graph, in instr, stackp *[]*Node) (*Node, error) {
	stack := *stackp
	defer func() { *stackp = stack }()

	if in.op == opDoSpecial {
		switch in.sp {
		case specialDuplicate:
			if len(stack) < 1 {
				return nil, ErrStackUnderflow
			}
			top := stack[len(stack)-1]
			n := g.newNode(KindInstruction)
			n.Mnemonic, n.Offset = in.mnemonic, in.offset
			n.DataIn = []*Node{top}
			stack = append(stack, top)
			return n, nil
		case specialPopTop:
			if len(stack) < 1 {
				return nil, ErrStackUnderflow
			}
			n := g.newNode(KindInstruction)
			n.Mnemonic, n.Offset = in.mnemonic, in.offset
			n.DataIn = []*Node{stack[len(stack)-1]}
			stack = stack[:len(stack)-1]
			return n, nil
		}
	}
	if in.op == opAssignInstance || in.op == opAssignTemporary {
		if len(stack) < 1 {
			return nil, ErrStackUnderflow
		}
		n := g.newNode(KindInstruction)
		n.Mnemonic, n.Offset = in.mnemonic, in.offset
		n.DataIn = []*Node{stack[len(stack)-1]}
		return n, nil
	}

	if len(stack) < in.pops {
		return nil, ErrStackUnderflow
	}
	popped := append([]*Node{}, stack[len(stack)-in.pops:]...)
	stack = stack[:len(stack)-in.pops]

	n := g.newNode(KindInstruction)
	n.Mnemonic, n.Offset = in.mnemonic, in.offset
	n.DataIn = popped

	for i := 0; i < in.pushes; i++ {
		stack = append(stack, n)
	}
	return n, nil
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
