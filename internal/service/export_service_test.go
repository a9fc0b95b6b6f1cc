package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-approvals/internal/engine"
	"go-approvals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// pagedEngine serves a fixed register in pages through List; the other
// engine operations are unused by the export path
type pagedEngine struct {
	engine.Engine
	requests []models.ApprovalRequest
	calls    int
}

func (e *pagedEngine) List(ctx context.Context, status models.RequestStatus, page, limit int64) ([]models.ApprovalRequest, int64, error) {
	e.calls++
	total := int64(len(e.requests))
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return e.requests[start:end], total, nil
}

func registerFixture(n int) []models.ApprovalRequest {
	out := make([]models.ApprovalRequest, n)
	for i := range out {
		out[i] = models.ApprovalRequest{
			ID:              primitive.NewObjectID(),
			TemplateCode:    "WF-TEST-001",
			TemplateVersion: 1,
			TransactionType: models.TransactionPurchaseOrder,
			Transaction: models.TransactionRef{
				RefID:       fmt.Sprintf("PO-%04d", i),
				Subject:     fmt.Sprintf("Order %d", i),
				Amount:      100,
				Currency:    "EUR",
				RequesterID: "u-emp-1",
			},
			Status:    models.RequestStatusPending,
			CreatedAt: time.Now(),
		}
	}
	return out
}

func TestBuildRegisterIncludesEveryPage(t *testing.T) {
	// more rows than one page so the export has to keep fetching
	eng := &pagedEngine{requests: registerFixture(exportPageSize + 37)}
	svc := NewExportService(eng)

	file, err := svc.BuildRegister(context.Background(), "")
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows("Approval Register")
	require.NoError(t, err)
	// header + every request
	assert.Len(t, rows, exportPageSize+37+1)
	assert.GreaterOrEqual(t, eng.calls, 2)
}

func TestBuildRegisterEmpty(t *testing.T) {
	eng := &pagedEngine{}
	svc := NewExportService(eng)

	file, err := svc.BuildRegister(context.Background(), models.RequestStatusApproved)
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows("Approval Register")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Request ID", rows[0][0])
}

func TestFilename(t *testing.T) {
	assert.Contains(t, Filename(""), "approval-register-all-")
	assert.Contains(t, Filename(models.RequestStatusRejected), "approval-register-rejected-")
}
