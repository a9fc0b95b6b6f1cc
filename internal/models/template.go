package models

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType identifies the business transaction a workflow drives
type TransactionType string

const (
	TransactionPurchaseOrder      TransactionType = "purchase_order"
	TransactionExpenseClaim       TransactionType = "expense_claim"
	TransactionCapitalExpenditure TransactionType = "capital_expenditure"
	TransactionVendorPayment      TransactionType = "vendor_payment"
	TransactionTravelRequest      TransactionType = "travel_request"
	TransactionLeaveRequest       TransactionType = "leave_request"
	TransactionRecruitment        TransactionType = "recruitment"
	TransactionTimesheet          TransactionType = "timesheet"
)

// WorkflowType is an informational classification derived from the level
// structure; it carries no control logic of its own
type WorkflowType string

const (
	WorkflowSequential  WorkflowType = "sequential"
	WorkflowParallel    WorkflowType = "parallel"
	WorkflowHybrid      WorkflowType = "hybrid"
	WorkflowConditional WorkflowType = "conditional"
)

// ResolutionKind selects the strategy used to resolve a level's approvers
type ResolutionKind string

const (
	ResolveByRole           ResolutionKind = "role"
	ResolveByPosition       ResolutionKind = "position"
	ResolveReportingManager ResolutionKind = "reporting_manager"
	ResolveExplicitUser     ResolutionKind = "explicit_user"
)

// ApproverRule is the closed tagged variant dispatched through the resolver
type ApproverRule struct {
	Kind       ResolutionKind `bson:"kind" json:"kind"`
	RoleID     string         `bson:"role_id,omitempty" json:"role_id,omitempty"`
	PositionID string         `bson:"position_id,omitempty" json:"position_id,omitempty"`
	UserID     string         `bson:"user_id,omitempty" json:"user_id,omitempty"`
}

// Validate checks that the variant carries the payload its kind requires
func (r ApproverRule) Validate() error {
	switch r.Kind {
	case ResolveByRole:
		if r.RoleID == "" {
			return errors.New("role rule requires role_id")
		}
	case ResolveByPosition:
		if r.PositionID == "" {
			return errors.New("position rule requires position_id")
		}
	case ResolveReportingManager:
		// resolved from the requester, no payload
	case ResolveExplicitUser:
		if r.UserID == "" {
			return errors.New("explicit_user rule requires user_id")
		}
	default:
		return fmt.Errorf("unknown resolution kind %q", r.Kind)
	}
	return nil
}

// LevelDefinition is a single stage of a workflow template. Levels sharing
// the same order execute in parallel; advancement requires the order to
// strictly increase.
type LevelDefinition struct {
	Name       string       `bson:"name" json:"name"`
	LevelOrder int          `bson:"level_order" json:"level_order"`
	Rule       ApproverRule `bson:"rule" json:"rule"`
	SLAHours   int          `bson:"sla_hours" json:"sla_hours"`
}

// WorkflowTemplate is an immutable versioned workflow definition. Editing a
// template means creating a new version; in-flight requests stay pinned to
// the version they were submitted against.
type WorkflowTemplate struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code            string             `bson:"code" json:"code"`
	Version         int                `bson:"version" json:"version"`
	Name            string             `bson:"name" json:"name"`
	TransactionType TransactionType    `bson:"transaction_type" json:"transaction_type"`
	WorkflowType    WorkflowType       `bson:"workflow_type" json:"workflow_type"`
	Levels          []LevelDefinition  `bson:"levels" json:"levels"`
	EscalationHours int                `bson:"escalation_hours" json:"escalation_hours"`
	MaxEscalations  int                `bson:"max_escalations" json:"max_escalations"`
	IsActive        bool               `bson:"is_active" json:"is_active"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// Validate enforces the level-ordering invariant: at least one level, orders
// non-decreasing starting at 1, and no gaps between successive distinct
// order values.
func (t *WorkflowTemplate) Validate() error {
	if len(t.Levels) == 0 {
		return errors.New("template must define at least one level")
	}
	if t.EscalationHours <= 0 {
		return errors.New("escalation_hours must be positive")
	}
	if t.MaxEscalations < 0 {
		return errors.New("max_escalations must be >= 0")
	}

	prev := 0
	for i, lvl := range t.Levels {
		if lvl.SLAHours <= 0 {
			return fmt.Errorf("level %d: sla_hours must be positive", i)
		}
		if err := lvl.Rule.Validate(); err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
		switch {
		case i == 0:
			if lvl.LevelOrder != 1 {
				return fmt.Errorf("first level order must be 1, got %d", lvl.LevelOrder)
			}
		case lvl.LevelOrder < prev:
			return fmt.Errorf("level orders must be non-decreasing, got %d after %d", lvl.LevelOrder, prev)
		case lvl.LevelOrder > prev+1:
			return fmt.Errorf("level order gap between %d and %d", prev, lvl.LevelOrder)
		}
		prev = lvl.LevelOrder
	}
	return nil
}

// LevelsAt returns all sibling definitions sharing the given order value
func (t *WorkflowTemplate) LevelsAt(order int) []LevelDefinition {
	var siblings []LevelDefinition
	for _, lvl := range t.Levels {
		if lvl.LevelOrder == order {
			siblings = append(siblings, lvl)
		}
	}
	return siblings
}

// FirstOrder returns the lowest level order in the template
func (t *WorkflowTemplate) FirstOrder() int {
	if len(t.Levels) == 0 {
		return 0
	}
	return t.Levels[0].LevelOrder
}

// HighestOrder returns the highest level order in the template
func (t *WorkflowTemplate) HighestOrder() int {
	if len(t.Levels) == 0 {
		return 0
	}
	return t.Levels[len(t.Levels)-1].LevelOrder
}

// NextOrder returns the next strictly greater order value present in the
// template, or false when the given order is already the highest
func (t *WorkflowTemplate) NextOrder(after int) (int, bool) {
	for _, lvl := range t.Levels {
		if lvl.LevelOrder > after {
			return lvl.LevelOrder, true
		}
	}
	return 0, false
}

// SLAHoursAt returns the time budget of a level group. When parallel
// siblings declare different budgets the strictest one governs.
func (t *WorkflowTemplate) SLAHoursAt(order int) int {
	hours := 0
	for _, lvl := range t.LevelsAt(order) {
		if hours == 0 || lvl.SLAHours < hours {
			hours = lvl.SLAHours
		}
	}
	return hours
}

// IsParallelAt reports whether two or more siblings share the given order
func (t *WorkflowTemplate) IsParallelAt(order int) bool {
	return len(t.LevelsAt(order)) > 1
}

// Classify derives the informational workflow type from the level structure
func (t *WorkflowTemplate) Classify() WorkflowType {
	distinct := map[int]int{}
	for _, lvl := range t.Levels {
		distinct[lvl.LevelOrder]++
	}
	parallel := 0
	for _, n := range distinct {
		if n > 1 {
			parallel++
		}
	}
	switch {
	case parallel == 0:
		return WorkflowSequential
	case parallel == len(distinct):
		return WorkflowParallel
	default:
		return WorkflowHybrid
	}
}
