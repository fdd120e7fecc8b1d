// Package models contains domain types for the Code Animator backend.
package models

import (
	"math"
	"time"
)

// ElementType is the closed set of visual element kinds a plan may declare.
type ElementType string

const (
	ElementTypeBox     ElementType = "box"
	ElementTypeText    ElementType = "text"
	ElementTypeCode    ElementType = "code"
	ElementTypePointer ElementType = "pointer"
	ElementTypeArray   ElementType = "array"
)

// ElementTypes lists every valid element type in declaration order.
var ElementTypes = []ElementType{
	ElementTypeBox,
	ElementTypeText,
	ElementTypeCode,
	ElementTypePointer,
	ElementTypeArray,
}

// Valid reports whether t is one of the enumerated element types.
func (t ElementType) Valid() bool {
	for _, v := range ElementTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ActionType is the kind of mutation an action applies to its target element.
type ActionType string

const (
	ActionUpdate  ActionType = "UPDATE"
	ActionFadeIn  ActionType = "FADE_IN"
	ActionFadeOut ActionType = "FADE_OUT"
)

// ActionTypes lists every valid action type.
var ActionTypes = []ActionType{ActionUpdate, ActionFadeIn, ActionFadeOut}

// Valid reports whether t is one of the enumerated action types.
func (t ActionType) Valid() bool {
	for _, v := range ActionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// WhiteSpace mirrors the two whitespace handling modes a text element supports.
type WhiteSpace string

const (
	WhiteSpacePreWrap WhiteSpace = "pre-wrap"
	WhiteSpaceNormal  WhiteSpace = "normal"
)

// DefaultStepDuration is the auto-advance delay in milliseconds for steps without a duration.
const DefaultStepDuration = 1500

// Scene is the canvas extent in pixels.
type Scene struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// ElementStyle is a sparse set of visual properties. A nil field is unset,
// which is distinct from its zero value.
type ElementStyle struct {
	Top             *string     `json:"top,omitempty" yaml:"top,omitempty"`
	Left            *string     `json:"left,omitempty" yaml:"left,omitempty"`
	Width           *string     `json:"width,omitempty" yaml:"width,omitempty"`
	Height          *string     `json:"height,omitempty" yaml:"height,omitempty"`
	BackgroundColor *string     `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	BorderColor     *string     `json:"borderColor,omitempty" yaml:"borderColor,omitempty"`
	Color           *string     `json:"color,omitempty" yaml:"color,omitempty"`
	Opacity         *float64    `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Content         *string     `json:"content,omitempty" yaml:"content,omitempty"`
	FontSize        *string     `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	ZIndex          *float64    `json:"zIndex,omitempty" yaml:"zIndex,omitempty"`
	Transform       *string     `json:"transform,omitempty" yaml:"transform,omitempty"`
	TransformOrigin *string     `json:"transformOrigin,omitempty" yaml:"transformOrigin,omitempty"`
	BorderWidth     *string     `json:"borderWidth,omitempty" yaml:"borderWidth,omitempty"`
	BorderStyle     *string     `json:"borderStyle,omitempty" yaml:"borderStyle,omitempty"`
	WhiteSpace      *WhiteSpace `json:"whiteSpace,omitempty" yaml:"whiteSpace,omitempty"`
}

// Merge overlays every field set in patch onto s. Fields unset in patch are left alone.
func (s *ElementStyle) Merge(patch ElementStyle) {
	mergeField(&s.Top, patch.Top)
	mergeField(&s.Left, patch.Left)
	mergeField(&s.Width, patch.Width)
	mergeField(&s.Height, patch.Height)
	mergeField(&s.BackgroundColor, patch.BackgroundColor)
	mergeField(&s.BorderColor, patch.BorderColor)
	mergeField(&s.Color, patch.Color)
	mergeField(&s.Opacity, patch.Opacity)
	mergeField(&s.Content, patch.Content)
	mergeField(&s.FontSize, patch.FontSize)
	mergeField(&s.ZIndex, patch.ZIndex)
	mergeField(&s.Transform, patch.Transform)
	mergeField(&s.TransformOrigin, patch.TransformOrigin)
	mergeField(&s.BorderWidth, patch.BorderWidth)
	mergeField(&s.BorderStyle, patch.BorderStyle)
	mergeField(&s.WhiteSpace, patch.WhiteSpace)
}

// Clone returns a copy of s that shares no pointers with it.
func (s ElementStyle) Clone() ElementStyle {
	var out ElementStyle
	out.Merge(s)
	return out
}

// SetOpacity forces the opacity field to v.
func (s *ElementStyle) SetOpacity(v float64) {
	s.Opacity = &v
}

func mergeField[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

// Element is a positioned visual item. Children are only meaningful for arrays
// and never carry children of their own.
type Element struct {
	ID       string       `json:"id" yaml:"id"`
	Type     ElementType  `json:"type" yaml:"type"`
	Style    ElementStyle `json:"style" yaml:"style"`
	Children []Element    `json:"children,omitempty" yaml:"children,omitempty"`
}

// Clone deep-copies the element including its children.
func (e Element) Clone() Element {
	out := Element{
		ID:    e.ID,
		Type:  e.Type,
		Style: e.Style.Clone(),
	}
	if e.Children != nil {
		out.Children = make([]Element, len(e.Children))
		for i, child := range e.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

// Action mutates a single element identified by ElementID.
type Action struct {
	ElementID string       `json:"elementId" yaml:"elementId"`
	Type      ActionType   `json:"type" yaml:"type"`
	Payload   ElementStyle `json:"payload" yaml:"payload"`
}

// Step is one point on the timeline. Duration is in milliseconds, may be
// fractional and only paces automatic playback.
type Step struct {
	Description string   `json:"description" yaml:"description"`
	Actions     []Action `json:"actions" yaml:"actions"`
	Duration    *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// AnimationPlan is the immutable interchange document played back by the engine.
type AnimationPlan struct {
	Scene    Scene     `json:"scene" yaml:"scene"`
	Elements []Element `json:"elements" yaml:"elements"`
	Steps    []Step    `json:"steps" yaml:"steps"`
}

// TotalSteps returns the number of steps in the plan.
func (p *AnimationPlan) TotalSteps() int {
	return len(p.Steps)
}

// StepDuration returns the auto-advance delay in milliseconds for the step at index.
// The initial pseudo-step (-1), out-of-range indexes and missing or non-positive
// durations fall back to DefaultStepDuration. Fractional milliseconds are kept.
func (p *AnimationPlan) StepDuration(index int) time.Duration {
	if index < 0 || index >= len(p.Steps) {
		return DefaultStepDuration * time.Millisecond
	}
	d := p.Steps[index].Duration
	if d == nil || math.IsNaN(*d) || *d <= 0 {
		return DefaultStepDuration * time.Millisecond
	}
	return time.Duration(math.Round(*d * float64(time.Millisecond)))
}

// InitialDescription is shown before the first step has been applied.
const InitialDescription = "Initial state. Press play to begin."

// Description returns the caption for the step at index.
func (p *AnimationPlan) Description(index int) string {
	if index < 0 || index >= len(p.Steps) {
		return InitialDescription
	}
	return p.Steps[index].Description
}
