package domain

import (
	"encoding/json"
	"strings"
)

// ============================================================
// Categories
// ============================================================

// CategoryType is either income or expense.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// Valid reports whether t is income or expense.
func (t CategoryType) Valid() bool {
	return t == CategoryIncome || t == CategoryExpense
}

// Legacy category names that older LedgerOS servers use to mark loan
// interest, before links_to_loan_interest existed on the record.
var legacyInterestCategoryNames = map[string]bool{
	"Interest Paid":     true,
	"Interest Received": true,
}

// Category is a node of the category tree. The tree is at most two levels
// deep: top-level categories carry their sub-categories in Children.
type Category struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	ParentID            *string      `json:"parent_id"`
	Type                CategoryType `json:"type"`
	LinksToLoanInterest bool         `json:"links_to_loan_interest"`
	Children            []Category   `json:"children,omitempty"`
}

// UnmarshalJSON fills LinksToLoanInterest from the legacy names when the
// server does not send the flag.
func (c *Category) UnmarshalJSON(data []byte) error {
	type alias Category
	var raw struct {
		alias
		LinksToLoanInterest *bool `json:"links_to_loan_interest"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Category(raw.alias)
	if raw.LinksToLoanInterest != nil {
		c.LinksToLoanInterest = *raw.LinksToLoanInterest
	} else {
		c.LinksToLoanInterest = legacyInterestCategoryNames[c.Name]
	}
	return nil
}

// IsTopLevel reports whether the category has no parent.
func (c Category) IsTopLevel() bool {
	return c.ParentID == nil || *c.ParentID == ""
}

// CategoryInput is the create/edit form for a category.
type CategoryInput struct {
	Name     string       `json:"name"`
	ParentID *string      `json:"parent_id"`
	Type     CategoryType `json:"type"`
}

// NormalizeParent turns the "none" sentinel and empty strings into a
// top-level category (explicit null parent).
func (in *CategoryInput) NormalizeParent() {
	if in.ParentID != nil && (*in.ParentID == "" || *in.ParentID == NoneSentinel) {
		in.ParentID = nil
	}
}

// Validate checks a new or edited category against the existing tree:
// the parent must exist and be top-level, and a sub-category takes its
// parent's type.
func (in *CategoryInput) Validate(tree CategoryTree) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return &ErrValidation{Field: "name", Message: "category name is required"}
	}
	in.NormalizeParent()
	if in.ParentID != nil {
		parent, ok := tree.Find(*in.ParentID)
		if !ok {
			return &ErrValidation{Field: "parent_id", Message: "parent category not found"}
		}
		if !parent.IsTopLevel() {
			return &ErrValidation{Field: "parent_id", Message: "sub-categories cannot have sub-categories"}
		}
		in.Type = parent.Type
	}
	if in.Type == "" {
		in.Type = CategoryExpense
	}
	if !in.Type.Valid() {
		return &ErrValidation{Field: "type", Message: "type must be income or expense"}
	}
	return nil
}

// CategoryTree is the nested list returned by GET /categories.
type CategoryTree []Category

// Find looks a category up by id at either level. A child found under a
// parent always has ParentID set, even when the server nested it without one.
func (t CategoryTree) Find(id string) (Category, bool) {
	for _, c := range t {
		if c.ID == id {
			return c, true
		}
		for _, child := range c.Children {
			if child.ID == id {
				parentID := c.ID
				child.ParentID = &parentID
				return child, true
			}
		}
	}
	return Category{}, false
}

// DisplayName returns "Parent > Child" for sub-categories and the plain
// name for top-level ones. ok is false for unknown ids.
func (t CategoryTree) DisplayName(id string) (string, bool) {
	for _, c := range t {
		if c.ID == id {
			return c.Name, true
		}
		for _, child := range c.Children {
			if child.ID == id {
				return c.Name + " > " + child.Name, true
			}
		}
	}
	return "", false
}

// OfType keeps the top-level categories of the given type.
func (t CategoryTree) OfType(typ CategoryType) CategoryTree {
	out := make(CategoryTree, 0, len(t))
	for _, c := range t {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// Flatten returns every category, parents before their children, with
// ParentID set on the children.
func (t CategoryTree) Flatten() []Category {
	out := make([]Category, 0, len(t))
	for _, c := range t {
		parent := c
		parent.Children = nil
		out = append(out, parent)
		for _, child := range c.Children {
			id := c.ID
			child.ParentID = &id
			out = append(out, child)
		}
	}
	return out
}

// CategoryTotal returns a top-level category's total from a report keyed
// by display name, including its sub-categories ("Parent > Child").
func CategoryTotal(c Category, byName map[string]float64) float64 {
	total := byName[c.Name]
	for _, child := range c.Children {
		total += byName[c.Name+" > "+child.Name]
	}
	return total
}
