package types

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PromptTemplateKind distinguishes the two template roles the pipeline uses.
type PromptTemplateKind string

const (
	PromptTemplateRAG        PromptTemplateKind = "rag"
	PromptTemplateEvaluation PromptTemplateKind = "evaluation"
	PromptTemplateReranking  PromptTemplateKind = "reranking"
)

var templateVarPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// PromptTemplate is a named, versioned prompt format string plus the set of
// variables it declares. A format/variable mismatch
// is rejected when the template is built, not deferred to first use —
// NewPromptTemplate parses Format for every `{name}` placeholder and
// requires each to be declared in InputVariables.
type PromptTemplate struct {
	ID            string             `json:"id" gorm:"type:varchar(36);primaryKey"`
	OwnerUserID   string             `json:"owner_user_id"`
	Kind          PromptTemplateKind `json:"kind"`
	Format        string             `json:"format"`
	InputVariables StringArray       `json:"input_variables" gorm:"type:json"`
	ExampleInputs JSON               `json:"example_inputs" gorm:"type:json"`
	IsDefault     bool               `json:"is_default"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

func (p *PromptTemplate) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// NewPromptTemplate validates format against declaredVars before
// construction ever succeeds: every `{placeholder}` in format must appear in
// declaredVars, and vice versa is not required (a declared variable may be
// unused by a particular format revision).
func NewPromptTemplate(id, ownerUserID string, kind PromptTemplateKind, format string, declaredVars []string) (*PromptTemplate, error) {
	declared := make(map[string]bool, len(declaredVars))
	for _, v := range declaredVars {
		declared[v] = true
	}
	for _, match := range templateVarPattern.FindAllStringSubmatch(format, -1) {
		name := match[1]
		if !declared[name] {
			return nil, &ValidationError{
				Field:  "format",
				Reason: fmt.Sprintf("references undeclared variable %q", name),
			}
		}
	}
	return &PromptTemplate{
		ID:             id,
		OwnerUserID:    ownerUserID,
		Kind:           kind,
		Format:         format,
		InputVariables: declaredVars,
	}, nil
}

// Render formats the template against vars. Any declared variable missing
// from vars at render time is also rejected, not silently left blank.
func (p *PromptTemplate) Render(vars map[string]string) (string, error) {
	for _, name := range p.InputVariables {
		if _, ok := vars[name]; !ok {
			if !regexp.MustCompile(`\{` + regexp.QuoteMeta(name) + `\}`).MatchString(p.Format) {
				continue
			}
			return "", &ValidationError{
				Field:  "vars",
				Reason: fmt.Sprintf("missing value for declared variable %q", name),
			}
		}
	}
	return templateVarPattern.ReplaceAllStringFunc(p.Format, func(placeholder string) string {
		name := placeholder[1 : len(placeholder)-1]
		return vars[name]
	}), nil
}
