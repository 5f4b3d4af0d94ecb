package dialog

import (
	"fmt"

	"tableflip.dev/bands/pkg/host"
)

// Row is one line of the membership editor. Action is empty for entry rows.
type Row struct {
	ID     string
	Label  string
	Action host.ManageAction
}

// editor tracks pending membership changes for one group.
type editor struct {
	req     host.ManageRequest
	initial map[string]bool
	member  map[string]bool
}

func newEditor(req host.ManageRequest) *editor {
	ed := &editor{
		req:     req,
		initial: make(map[string]bool, len(req.Entries)),
		member:  make(map[string]bool, len(req.Entries)),
	}
	for _, it := range req.Entries {
		ed.initial[it.ID] = it.Member
		ed.member[it.ID] = it.Member
	}
	return ed
}

func (ed *editor) toggle(id string) {
	if _, ok := ed.member[id]; ok {
		ed.member[id] = !ed.member[id]
	}
}

func (ed *editor) rows() []Row {
	rows := make([]Row, 0, len(ed.req.Entries)+4)
	for _, it := range ed.req.Entries {
		mark := "[ ]"
		if ed.member[it.ID] {
			mark = "[x]"
		}
		label := fmt.Sprintf("%s %s", mark, it.Title)
		if it.Title == "" {
			label = fmt.Sprintf("%s (untitled #%s)", mark, it.ID)
		}
		if it.Group != "" && it.Group != ed.req.Group {
			label += fmt.Sprintf("  (in %s)", it.Group)
		}
		rows = append(rows, Row{ID: it.ID, Label: label})
	}
	return append(rows,
		Row{Label: "Apply", Action: host.ManageApply},
		Row{Label: "Switch group...", Action: host.ManageSwitch},
		Row{Label: "New group...", Action: host.ManageCreate},
		Row{Label: "Cancel", Action: host.ManageCancel},
	)
}

// result lists the entries whose membership changed, in request order.
func (ed *editor) result() host.ManageResult {
	res := host.ManageResult{Action: host.ManageApply, Group: ed.req.Group}
	for _, it := range ed.req.Entries {
		was, now := ed.initial[it.ID], ed.member[it.ID]
		switch {
		case now && !was:
			res.Add = append(res.Add, it.ID)
		case was && !now:
			res.Remove = append(res.Remove, it.ID)
		}
	}
	return res
}
