package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/pkg/logger"
)

// ComplianceService runs the full compliance pipeline: gather document
// fields, derive the calculation, resolve its inputs, evaluate, check the
// threshold and assemble the report.
type ComplianceService struct {
	docs     *DocumentService
	deriver  *FormulaDeriver
	resolver *ParameterResolver
	reports  *ReportGenerator
}

func NewComplianceService(docs *DocumentService, deriver *FormulaDeriver, resolver *ParameterResolver, reports *ReportGenerator) *ComplianceService {
	return &ComplianceService{
		docs:     docs,
		deriver:  deriver,
		resolver: resolver,
		reports:  reports,
	}
}

// Run executes a compliance check against the tenant's documents. A failed
// calculation still produces a report; only the absence of analyzable
// documents aborts the run.
func (s *ComplianceService) Run(ctx context.Context, tenant, prompt string, fileIDs []string) (*model.ComplianceOutcome, error) {
	bags := s.docs.FetchAll(ctx, tenant, fileIDs)
	if len(bags) == 0 {
		return nil, fmt.Errorf("no analyzable documents found")
	}

	spec := s.deriver.Derive(ctx, prompt)
	calc := s.calculate(ctx, spec, bags)

	logger.Info(ctx, "compliance calculation finished",
		"success", calc.Success,
		"status", calc.ComplianceStatus,
		"formula_source", spec.Source,
	)

	return &model.ComplianceOutcome{
		Report:            s.reports.Generate(prompt, spec, calc, bags),
		Calculation:       calc,
		DocumentsAnalyzed: len(bags),
	}, nil
}

func (s *ComplianceService) calculate(ctx context.Context, spec model.FormulaSpec, bags []*model.DocumentFields) *model.CalculationResult {
	if spec.Source == model.FormulaSourceUnknown {
		return &model.CalculationResult{
			Success:          false,
			Formula:          spec.Expression,
			ComplianceStatus: model.ComplianceError,
			ErrorMsg:         "missing parameters: no calculation could be determined for this request",
		}
	}

	resolved, missing := s.resolver.Resolve(ctx, spec.Parameters, bags)
	if len(missing) > 0 {
		return &model.CalculationResult{
			Success:          false,
			Formula:          spec.Expression,
			Parameters:       resolved,
			Threshold:        spec.Threshold,
			ComplianceStatus: model.ComplianceError,
			ErrorMsg:         fmt.Sprintf("missing parameters: %s", strings.Join(missing, ", ")),
		}
	}

	expr := normalizeExpression(spec.Expression, spec.Parameters)
	value, err := Evaluate(expr, resolved)
	if err != nil {
		return &model.CalculationResult{
			Success:          false,
			Formula:          spec.Expression,
			Parameters:       resolved,
			Threshold:        spec.Threshold,
			ComplianceStatus: model.ComplianceError,
			ErrorMsg:         fmt.Sprintf("calculation failed: %v", err),
		}
	}

	return &model.CalculationResult{
		Success:          true,
		Result:           &value,
		Formula:          spec.Expression,
		Parameters:       resolved,
		Threshold:        spec.Threshold,
		ComplianceStatus: CheckThreshold(spec.Threshold, value),
	}
}
