package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTemplate() WorkflowTemplate {
	return WorkflowTemplate{
		Code:            "WF-TEST-001",
		Name:            "Test Workflow",
		TransactionType: TransactionPurchaseOrder,
		Levels: []LevelDefinition{
			{Name: "Manager", LevelOrder: 1, Rule: ApproverRule{Kind: ResolveReportingManager}, SLAHours: 24},
			{Name: "Finance", LevelOrder: 2, Rule: ApproverRule{Kind: ResolveByRole, RoleID: "finance"}, SLAHours: 48},
		},
		EscalationHours: 12,
		MaxEscalations:  2,
	}
}

func TestWorkflowTemplateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkflowTemplate)
		wantErr string
	}{
		{
			name:   "valid sequential",
			mutate: func(t *WorkflowTemplate) {},
		},
		{
			name: "valid parallel siblings",
			mutate: func(tpl *WorkflowTemplate) {
				tpl.Levels = append(tpl.Levels, LevelDefinition{
					Name: "Legal", LevelOrder: 2,
					Rule: ApproverRule{Kind: ResolveByRole, RoleID: "legal"}, SLAHours: 48,
				})
			},
		},
		{
			name:    "no levels",
			mutate:  func(tpl *WorkflowTemplate) { tpl.Levels = nil },
			wantErr: "at least one level",
		},
		{
			name:    "first order not one",
			mutate:  func(tpl *WorkflowTemplate) { tpl.Levels[0].LevelOrder = 2 },
			wantErr: "first level order must be 1",
		},
		{
			name: "decreasing order",
			mutate: func(tpl *WorkflowTemplate) {
				tpl.Levels = append(tpl.Levels, LevelDefinition{
					Name: "Back", LevelOrder: 1,
					Rule: ApproverRule{Kind: ResolveByRole, RoleID: "x"}, SLAHours: 1,
				})
			},
			wantErr: "non-decreasing",
		},
		{
			name:    "order gap",
			mutate:  func(tpl *WorkflowTemplate) { tpl.Levels[1].LevelOrder = 4 },
			wantErr: "gap",
		},
		{
			name:    "zero sla",
			mutate:  func(tpl *WorkflowTemplate) { tpl.Levels[0].SLAHours = 0 },
			wantErr: "sla_hours must be positive",
		},
		{
			name:    "zero escalation window",
			mutate:  func(tpl *WorkflowTemplate) { tpl.EscalationHours = 0 },
			wantErr: "escalation_hours must be positive",
		},
		{
			name:    "negative max escalations",
			mutate:  func(tpl *WorkflowTemplate) { tpl.MaxEscalations = -1 },
			wantErr: "max_escalations",
		},
		{
			name:    "role rule missing role id",
			mutate:  func(tpl *WorkflowTemplate) { tpl.Levels[1].Rule = ApproverRule{Kind: ResolveByRole} },
			wantErr: "requires role_id",
		},
		{
			name:    "explicit user rule missing user id",
			mutate:  func(tpl *WorkflowTemplate) { tpl.Levels[1].Rule = ApproverRule{Kind: ResolveExplicitUser} },
			wantErr: "requires user_id",
		},
		{
			name:    "unknown rule kind",
			mutate:  func(tpl *WorkflowTemplate) { tpl.Levels[0].Rule = ApproverRule{Kind: "votes"} },
			wantErr: "unknown resolution kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := validTemplate()
			tt.mutate(&tpl)
			err := tpl.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNextOrder(t *testing.T) {
	tpl := validTemplate()

	next, ok := tpl.NextOrder(1)
	require.True(t, ok)
	assert.Equal(t, 2, next)

	_, ok = tpl.NextOrder(2)
	assert.False(t, ok)

	next, ok = tpl.NextOrder(0)
	require.True(t, ok)
	assert.Equal(t, 1, next)
}

func TestSLAHoursAtUsesStrictestSibling(t *testing.T) {
	tpl := validTemplate()
	tpl.Levels = append(tpl.Levels, LevelDefinition{
		Name: "Legal", LevelOrder: 2,
		Rule: ApproverRule{Kind: ResolveByRole, RoleID: "legal"}, SLAHours: 72,
	})

	assert.Equal(t, 24, tpl.SLAHoursAt(1))
	assert.Equal(t, 48, tpl.SLAHoursAt(2))
	assert.True(t, tpl.IsParallelAt(2))
	assert.False(t, tpl.IsParallelAt(1))
}

func TestClassify(t *testing.T) {
	sequential := validTemplate()
	assert.Equal(t, WorkflowSequential, sequential.Classify())

	hybrid := validTemplate()
	hybrid.Levels = append(hybrid.Levels, LevelDefinition{
		Name: "Legal", LevelOrder: 2,
		Rule: ApproverRule{Kind: ResolveByRole, RoleID: "legal"}, SLAHours: 48,
	})
	assert.Equal(t, WorkflowHybrid, hybrid.Classify())

	parallel := WorkflowTemplate{
		Levels: []LevelDefinition{
			{LevelOrder: 1, Rule: ApproverRule{Kind: ResolveByRole, RoleID: "a"}, SLAHours: 1},
			{LevelOrder: 1, Rule: ApproverRule{Kind: ResolveByRole, RoleID: "b"}, SLAHours: 1},
		},
	}
	assert.Equal(t, WorkflowParallel, parallel.Classify())
}
