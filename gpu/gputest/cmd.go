// Copyright (c) 2025 Cubyte.online under the AGPL License

package gputest

import (
	"errors"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Op is one recorded command.
type Op struct {
	Name string

	Barriers    []gpu.Barrier
	Transitions []gpu.Transition

	Accel   gpu.AccelStruct
	Inst    gpu.Buffer
	Scratch gpu.Buffer

	Pipeline gpu.Pipeline
	Sets     []gpu.DescSet
	Start    int

	Width, Height int

	Pass gpu.RenderPass
	FB   gpu.Framebuf

	From, To             gpu.Image
	FromLayout, ToLayout gpu.Layout

	Buffer gpu.Buffer
	Count  int
}

// Names returns the command names of ops.
func Names(ops []Op) []string {
	s := make([]string, len(ops))
	for i, op := range ops {
		s[i] = op.Name
	}
	return s
}

// CmdBuffer is a fake gpu.CmdBuffer.
type CmdBuffer struct {
	g         *GPU
	recording bool
	inPass    bool
	Ops       []Op
}

func (cb *CmdBuffer) Destroy() { cb.g.release(cb) }

func (cb *CmdBuffer) Begin() error {
	if cb.recording {
		return errors.New("gputest: command buffer already recording")
	}
	cb.recording = true
	cb.Ops = nil
	return nil
}

func (cb *CmdBuffer) End() error {
	if !cb.recording {
		return errors.New("gputest: command buffer not recording")
	}
	if cb.inPass {
		return errors.New("gputest: render pass not ended")
	}
	cb.recording = false
	return nil
}

func (cb *CmdBuffer) add(op Op) {
	if !cb.recording {
		cb.g.violate("%s recorded outside Begin/End", op.Name)
	}
	cb.Ops = append(cb.Ops, op)
}

func (cb *CmdBuffer) Barrier(b []gpu.Barrier) {
	cb.add(Op{Name: "Barrier", Barriers: append([]gpu.Barrier(nil), b...)})
}

func (cb *CmdBuffer) Transition(t []gpu.Transition) {
	cb.add(Op{Name: "Transition", Transitions: append([]gpu.Transition(nil), t...)})
}

func (cb *CmdBuffer) BuildAccel(dst gpu.AccelStruct, inst gpu.Buffer, scratch gpu.Buffer) {
	cb.add(Op{Name: "BuildAccel", Accel: dst, Inst: inst, Scratch: scratch})
}

func (cb *CmdBuffer) SetPipeline(pl gpu.Pipeline) {
	cb.add(Op{Name: "SetPipeline", Pipeline: pl})
}

func (cb *CmdBuffer) SetDescSets(pl gpu.Pipeline, start int, sets []gpu.DescSet) {
	cb.add(Op{Name: "SetDescSets", Pipeline: pl, Start: start, Sets: append([]gpu.DescSet(nil), sets...)})
}

func (cb *CmdBuffer) TraceRays(pl gpu.Pipeline, width, height int) {
	cb.add(Op{Name: "TraceRays", Pipeline: pl, Width: width, Height: height})
}

func (cb *CmdBuffer) BeginPass(pass gpu.RenderPass, fb gpu.Framebuf, clear [][4]float32) {
	if cb.inPass {
		cb.g.violate("nested render pass")
	}
	cb.inPass = true
	cb.add(Op{Name: "BeginPass", Pass: pass, FB: fb})
}

func (cb *CmdBuffer) NextSubpass() {
	if !cb.inPass {
		cb.g.violate("NextSubpass outside a render pass")
	}
	cb.add(Op{Name: "NextSubpass"})
}

func (cb *CmdBuffer) EndPass() {
	if !cb.inPass {
		cb.g.violate("EndPass outside a render pass")
	}
	cb.inPass = false
	cb.add(Op{Name: "EndPass"})
}

func (cb *CmdBuffer) SetVertexBuf(buf gpu.Buffer) {
	cb.add(Op{Name: "SetVertexBuf", Buffer: buf})
}

func (cb *CmdBuffer) SetIndexBuf(buf gpu.Buffer) {
	cb.add(Op{Name: "SetIndexBuf", Buffer: buf})
}

func (cb *CmdBuffer) DrawIndexed(count int) {
	if !cb.inPass {
		cb.g.violate("DrawIndexed outside a render pass")
	}
	cb.add(Op{Name: "DrawIndexed", Count: count})
}

func (cb *CmdBuffer) Blit(from gpu.Image, fromLayout gpu.Layout, to gpu.Image, toLayout gpu.Layout) {
	cb.add(Op{Name: "Blit", From: from, FromLayout: fromLayout, To: to, ToLayout: toLayout})
}

// replay applies the layout effects of a submission in order.
func (g *GPU) replay(sub *Submission) {
	for _, op := range sub.Ops {
		switch op.Name {
		case "Transition":
			for _, t := range op.Transitions {
				im := t.Image.(*Image)
				if t.LayoutBefore != gpu.LUndefined && im.Layout != t.LayoutBefore {
					g.violate("transition of %s from %s while in %s", im.name, t.LayoutBefore, im.Layout)
				}
				im.Layout = t.LayoutAfter
			}
		case "BeginPass":
			rp := op.Pass.(*RenderPass)
			fb := op.FB.(*Framebuf)
			for i, a := range rp.Attachments {
				im := fb.Views[i].(*Image)
				if a.LayoutBefore != gpu.LUndefined && im.Layout != a.LayoutBefore {
					g.violate("render pass expects %s in %s, found %s", im.name, a.LayoutBefore, im.Layout)
				}
				im.Layout = a.LayoutAfter
			}
		case "Blit":
			from, to := op.From.(*Image), op.To.(*Image)
			if from.Layout != op.FromLayout {
				g.violate("blit source %s in %s, expected %s", from.name, from.Layout, op.FromLayout)
			}
			if to.Layout != op.ToLayout {
				g.violate("blit destination %s in %s, expected %s", to.name, to.Layout, op.ToLayout)
			}
		case "BuildAccel":
			as := op.Accel.(*AccelStruct)
			if op.Scratch == nil || op.Scratch.Size() < as.ScratchSize() {
				g.violate("scratch buffer too small for acceleration structure build")
			}
			if as.Level() == gpu.TopLevel && op.Inst == nil {
				g.violate("top-level build without instance buffer")
			}
			as.Built++
		}
	}
}
