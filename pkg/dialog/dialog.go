// Package dialog implements host.Dialog on a terminal with promptui.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"

	"tableflip.dev/bands/pkg/host"
)

// Terminal prompts on In and draws on Out.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

var _ host.Dialog = (*Terminal)(nil)

// New returns a Terminal reading in and writing out.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{In: in, Out: out}
}

func (t *Terminal) stdin() io.ReadCloser {
	return io.NopCloser(t.In)
}

func (t *Terminal) stdout() io.WriteCloser {
	return nopCloser{t.Out}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// cancelled reports whether err is the user leaving a prompt.
func cancelled(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) ||
		errors.Is(err, promptui.ErrEOF) ||
		errors.Is(err, promptui.ErrAbort)
}

func (t *Terminal) Prompt(ctx context.Context, req host.PromptRequest) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if req.Message != "" {
		fmt.Fprintln(t.Out, req.Message)
	}
	prompt := promptui.Prompt{
		Label:     req.Title,
		Default:   req.Initial,
		AllowEdit: true,
		Templates: &promptui.PromptTemplates{
			Prompt:  "{{ . }}: ",
			Valid:   "{{ . | green }}: ",
			Invalid: "{{ . | red }}: ",
			Success: "{{ . | bold }}: ",
		},
		Stdin:  t.stdin(),
		Stdout: t.stdout(),
	}
	if req.Validate != nil {
		prompt.Validate = promptui.ValidateFunc(req.Validate)
	}
	value, err := prompt.Run()
	if err != nil {
		if cancelled(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("dialog: prompt: %w", err)
	}
	return strings.TrimSpace(value), true, nil
}

func (t *Terminal) Choose(ctx context.Context, req host.ChoiceRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return host.ChoiceCancel, err
	}
	if req.Message != "" {
		fmt.Fprintln(t.Out, req.Message)
	}
	sel := promptui.Select{
		HideHelp: true,
		Label:    req.Title,
		Items:    req.Choices,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}?",
			Active:   "➜  {{ .Label | bold }}",
			Inactive: "   {{ .Label }}",
			Selected: "{{ .Label | bold }}",
		},
		Stdin:  t.stdin(),
		Stdout: t.stdout(),
	}
	i, _, err := sel.Run()
	if err != nil {
		if cancelled(err) {
			return host.ChoiceCancel, nil
		}
		return host.ChoiceCancel, fmt.Errorf("dialog: choose: %w", err)
	}
	return req.Choices[i].Key, nil
}

func (t *Terminal) Manage(ctx context.Context, req host.ManageRequest) (host.ManageResult, error) {
	ed := newEditor(req)
	cursor := 0
	for {
		if err := ctx.Err(); err != nil {
			return host.ManageResult{Action: host.ManageCancel}, err
		}
		rows := ed.rows()
		sel := promptui.Select{
			HideHelp:  true,
			Label:     fmt.Sprintf("Group %q in %s", req.Group, req.Book),
			Items:     rows,
			Size:      12,
			CursorPos: cursor,
			Templates: &promptui.SelectTemplates{
				Label:    "{{ . | magenta }}",
				Active:   "➜ {{ if .Action }}{{ .Label | bold | green }}{{ else }}{{ .Label | bold }}{{ end }}",
				Inactive: "  {{ if .Action }}{{ .Label | faint | green }}{{ else }}{{ .Label }}{{ end }}",
				Selected: "{{ .Label | bold }}",
			},
			Searcher: func(input string, index int) bool {
				return strings.Contains(strings.ToLower(rows[index].Label), strings.ToLower(input))
			},
			Stdin:  t.stdin(),
			Stdout: t.stdout(),
		}
		i, _, err := sel.Run()
		if err != nil {
			if cancelled(err) {
				return host.ManageResult{Action: host.ManageCancel}, nil
			}
			return host.ManageResult{Action: host.ManageCancel}, fmt.Errorf("dialog: manage: %w", err)
		}
		cursor = i
		row := rows[i]
		switch row.Action {
		case "":
			ed.toggle(row.ID)
			continue
		case host.ManageSwitch:
			target, ok, err := t.pickGroup(req)
			if err != nil {
				return host.ManageResult{Action: host.ManageCancel}, err
			}
			if !ok {
				continue
			}
			return host.ManageResult{Action: host.ManageSwitch, Group: target}, nil
		case host.ManageApply:
			return ed.result(), nil
		default:
			return host.ManageResult{Action: row.Action}, nil
		}
	}
}

func (t *Terminal) pickGroup(req host.ManageRequest) (string, bool, error) {
	var others []string
	for _, g := range req.Groups {
		if g != req.Group {
			others = append(others, g)
		}
	}
	if len(others) == 0 {
		fmt.Fprintln(t.Out, "No other groups.")
		return "", false, nil
	}
	sel := promptui.Select{
		HideHelp: true,
		Label:    "Switch to group",
		Items:    others,
		Stdin:    t.stdin(),
		Stdout:   t.stdout(),
	}
	i, _, err := sel.Run()
	if err != nil {
		if cancelled(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("dialog: switch group: %w", err)
	}
	return others[i], true, nil
}
