package models

import (
	"errors"
	"strings"
)

// ErrEmptyLabel is returned when a class label is blank after trimming.
var ErrEmptyLabel = errors.New("label must not be empty")

// ClassSet is the ordered list of class labels for a project. Order binds
// the numeric hotkeys: 1..9 select the first nine classes.
type ClassSet struct {
	labels []string
}

// NewClassSet builds a set from labels, dropping blanks and duplicates while
// keeping first-seen order.
func NewClassSet(labels []string) *ClassSet {
	cs := &ClassSet{}
	for _, l := range labels {
		_, _ = cs.Append(l)
	}
	return cs
}

// Labels returns a copy of the ordered labels.
func (c *ClassSet) Labels() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.labels...)
}

// Len returns the number of classes.
func (c *ClassSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.labels)
}

// Contains reports whether label is a member of the set.
func (c *ClassSet) Contains(label string) bool {
	if c == nil {
		return false
	}
	for _, l := range c.labels {
		if l == label {
			return true
		}
	}
	return false
}

// Append adds label at the end of the set. It returns false without error
// when the label is already present.
func (c *ClassSet) Append(label string) (bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return false, ErrEmptyLabel
	}
	if c.Contains(label) {
		return false, nil
	}
	c.labels = append(c.labels, label)
	return true, nil
}

// Hotkey returns the class bound to a digit key "1".."9".
func (c *ClassSet) Hotkey(key string) (string, bool) {
	if c == nil || len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return "", false
	}
	n := int(key[0] - '1')
	if n >= len(c.labels) {
		return "", false
	}
	return c.labels[n], true
}
