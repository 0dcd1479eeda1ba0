package editor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/coords"
	"github.com/spherical/case-intake/internal/domain"
)

// Step is one scripted editor operation.
type Step struct {
	Op     domain.Operation `yaml:"op"`
	Page   int              `yaml:"page"`
	Angle  int              `yaml:"angle,omitempty"`
	Rect   []float64        `yaml:"rect,omitempty"` // x, y, w, h in page space
	Margin *int             `yaml:"margin,omitempty"`
	Order  []int            `yaml:"order,omitempty"`
	Kind   string           `yaml:"kind,omitempty"`
	Text   string           `yaml:"text,omitempty"`
	Color  string           `yaml:"color,omitempty"`
	Filter string           `yaml:"filter,omitempty"`
}

// Script is an ordered list of operations plus an optional save target.
type Script struct {
	Output     string `yaml:"output,omitempty"`
	Operations []Step `yaml:"operations"`
}

// LoadScript reads a YAML edit script. A relative output path is taken
// relative to the script's directory.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.InputError("read edit script", err).WithFile(path)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, err
	}
	if s.Output != "" {
		s.Output = config.ResolveRelativePath(path, s.Output)
	}
	return s, nil
}

// ParseScript decodes a YAML edit script and checks every step.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, domain.InputError("parse edit script", err)
	}
	for i, st := range s.Operations {
		if err := st.validate(); err != nil {
			return nil, domain.InputError(fmt.Sprintf("step %d (%s)", i+1, st.Op), err)
		}
	}
	return &s, nil
}

func (st Step) validate() error {
	switch st.Op {
	case domain.OpRotate, domain.OpEnhance, domain.OpCropAuto, domain.OpDelete:
		return nil
	case domain.OpCropCustom:
		if len(st.Rect) != 4 {
			return fmt.Errorf("rect needs 4 values, got %d", len(st.Rect))
		}
	case domain.OpReorder:
		if len(st.Order) == 0 {
			return fmt.Errorf("order is required")
		}
	case domain.OpAnnotate:
		if !domain.AnnotationKind(st.Kind).Valid() {
			return fmt.Errorf("unknown annotation kind %q: %w", st.Kind, domain.ErrUnknownKind)
		}
		if len(st.Rect) != 4 {
			return fmt.Errorf("rect needs 4 values, got %d", len(st.Rect))
		}
		if st.Color != "" {
			if _, err := config.ParseColor(st.Color); err != nil {
				return err
			}
		}
	case domain.OpApplyFilter:
		if !domain.FilterKind(st.Filter).Valid() {
			return fmt.Errorf("unknown filter %q: %w", st.Filter, domain.ErrUnknownKind)
		}
	default:
		return fmt.Errorf("unknown operation: %w", domain.ErrUnknownKind)
	}
	return nil
}

func (st Step) rect() coords.Rect {
	return coords.R(st.Rect[0], st.Rect[1], st.Rect[2], st.Rect[3])
}

// Run applies every step in order and stops at the first failure. onStep,
// if set, is called before each step.
func (s *Session) Run(script *Script, onStep func(i int, st Step)) error {
	for i, st := range script.Operations {
		if onStep != nil {
			onStep(i, st)
		}
		if err := s.step(st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
	}
	return nil
}

func (s *Session) step(st Step) error {
	switch st.Op {
	case domain.OpRotate:
		return s.Rotate(st.Page, st.Angle)
	case domain.OpEnhance:
		_, err := s.Enhance(st.Page)
		return err
	case domain.OpCropCustom:
		return s.CropCustom(st.Page, st.rect())
	case domain.OpCropAuto:
		margin := DefaultCropMargin
		if st.Margin != nil {
			margin = *st.Margin
		}
		_, err := s.CropAuto(st.Page, margin)
		return err
	case domain.OpReorder:
		return s.Reorder(st.Order)
	case domain.OpDelete:
		return s.Delete(st.Page)
	case domain.OpAnnotate:
		a := Annotation{Kind: domain.AnnotationKind(st.Kind), Rect: st.rect(), Text: st.Text}
		if st.Color != "" {
			c, err := config.ParseColor(st.Color)
			if err != nil {
				return domain.InputError("invalid annotation color", err)
			}
			a.Color = c
		}
		return s.Annotate(st.Page, a)
	case domain.OpApplyFilter:
		return s.ApplyFilter(st.Page, domain.FilterKind(st.Filter))
	}
	return domain.InputError(fmt.Sprintf("unknown operation %q", st.Op), domain.ErrUnknownKind)
}
