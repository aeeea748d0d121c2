// internal/template/lint.go
package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"notify-engine/internal/common/errors"
)

// LintReport summarizes a sample payload check against a template's current
// version.
type LintReport struct {
	Valid             bool     `json:"valid"`
	MissingVariables  []string `json:"missingVariables,omitempty"`
	SchemaViolations  []string `json:"schemaViolations,omitempty"`
	DeclaredVariables []string `json:"declaredVariables"`
}

// LintSamplePayload validates the template's stored sample payload: every
// variable the current version references must resolve against the sample,
// and when a JSON schema is supplied the sample must satisfy it.
func (s *Service) LintSamplePayload(ctx context.Context, tenantID, id string, schema map[string]interface{}) (*LintReport, error) {
	t, err := s.store.GetTemplate(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	v, err := s.store.GetVersion(ctx, tenantID, t.ID, t.CurrentVersion)
	if err != nil {
		return nil, err
	}

	report := &LintReport{Valid: true, DeclaredVariables: v.Variables}

	for _, variable := range v.Variables {
		if _, ok := resolvePath(variable, t.SamplePayload); !ok {
			report.MissingVariables = append(report.MissingVariables, variable)
			report.Valid = false
		}
	}

	if schema != nil {
		result, err := gojsonschema.Validate(
			gojsonschema.NewGoLoader(schema),
			gojsonschema.NewGoLoader(t.SamplePayload),
		)
		if err != nil {
			return nil, errors.NewBadRequestError("Invalid payload schema", err.Error())
		}
		if !result.Valid() {
			report.Valid = false
			for _, desc := range result.Errors() {
				report.SchemaViolations = append(report.SchemaViolations,
					fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
			}
		}
	}

	if !report.Valid {
		s.logger.Warn("sample payload lint failed", map[string]interface{}{
			"tenantId":   tenantID,
			"templateId": id,
			"missing":    strings.Join(report.MissingVariables, ","),
			"violations": len(report.SchemaViolations),
		})
	}
	return report, nil
}
