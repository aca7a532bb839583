package conversation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// SummaryText renders the collected business record of a completed session
// as plain text, annotated with best-effort registry lookups. Lookup
// failures degrade to an unannotated summary; they never fail the request.
func (uc *Usecase) SummaryText(ctx context.Context, sessionID string) (string, error) {
	conv, err := uc.store.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if !conv.Complete {
		return "", entity.ErrNoResult
	}

	biz := conv.Business
	var sb strings.Builder

	fmt.Fprintf(&sb, "Company name: %s\n", orUnknown(biz.CompanyName))
	fmt.Fprintf(&sb, "Registration number: %s\n", orUnknown(biz.RegistrationNumber))
	fmt.Fprintf(&sb, "Tax number: %s\n", orUnknown(biz.TaxNumber))

	if len(biz.ContactDetails) > 0 {
		sb.WriteString("Contact details:\n")
		keys := make([]string, 0, len(biz.ContactDetails))
		for k := range biz.ContactDetails {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, biz.ContactDetails[k])
		}
	}

	if len(biz.ValidationErrors) > 0 {
		sb.WriteString("Validation issues:\n")
		fields := make([]string, 0, len(biz.ValidationErrors))
		for f := range biz.ValidationErrors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			for _, reason := range biz.ValidationErrors[f] {
				fmt.Fprintf(&sb, "  %s: %s\n", f, reason)
			}
		}
	}

	uc.annotateFromRegistry(ctx, biz, &sb)

	return sb.String(), nil
}

func (uc *Usecase) annotateFromRegistry(ctx context.Context, biz *entity.BusinessInfo, sb *strings.Builder) {
	if uc.registry == nil {
		return
	}

	if biz.CompanyName != "" || biz.RegistrationNumber != "" {
		rec, err := uc.registry.LookupCompany(ctx, &entity.CompanyLookupRequest{
			CompanyName:        biz.CompanyName,
			RegistrationNumber: biz.RegistrationNumber,
		})
		if err != nil {
			ctxzap.Warn(ctx, "company registry lookup failed", zap.Error(err))
		} else {
			fmt.Fprintf(sb, "Registry: %s (%s), status %s\n", rec.CompanyName, rec.RegistrationNumber, rec.Status)
		}
	}

	if biz.TaxNumber != "" {
		rec, err := uc.registry.LookupTax(ctx, &entity.TaxLookupRequest{TaxNumber: biz.TaxNumber})
		if err != nil {
			ctxzap.Warn(ctx, "tax registry lookup failed", zap.Error(err))
		} else {
			fmt.Fprintf(sb, "Tax record: %s, valid=%t\n", rec.TaxNumber, rec.Valid)
		}
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "(not provided)"
	}
	return v
}
