package permission

import (
	"errors"
	"time"
)

// GrantItemDTO is the wire shape for one grant in the batch mutation
// endpoint. Exactly one subject field and one target field must be set;
// Validate turns a well-formed item into the internal tagged unions.
type GrantItemDTO struct {
	User      *int64     `json:"user,omitempty"`
	Group     *int64     `json:"group,omitempty"`
	Lock      *int64     `json:"lock,omitempty"`
	LockGroup *int64     `json:"lock_group,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

func (d GrantItemDTO) Validate() error {
	if (d.User == nil) == (d.Group == nil) {
		return ErrInvalidSubject
	}
	if (d.Lock == nil) == (d.LockGroup == nil) {
		return ErrInvalidTarget
	}
	window := TimeWindow{Start: d.StartDate, End: d.EndDate}
	return window.Validate()
}

// ToGrant converts a validated item. Callers must run Validate first.
func (d GrantItemDTO) ToGrant() *Grant {
	g := &Grant{
		Window: TimeWindow{Start: d.StartDate, End: d.EndDate},
	}
	if d.User != nil {
		g.Subject = UserSubject(*d.User)
	} else if d.Group != nil {
		g.Subject = GroupSubject(*d.Group)
	}
	if d.Lock != nil {
		g.Target = LockTarget(*d.Lock)
	} else if d.LockGroup != nil {
		g.Target = LockGroupTarget(*d.LockGroup)
	}
	return g
}

// BatchMutationDTO carries the admin batch endpoint payload.
type BatchMutationDTO struct {
	ToAdd    []GrantItemDTO `json:"toAdd"`
	ToRemove []GrantItemDTO `json:"toRemove"`
}

func (d BatchMutationDTO) Validate() error {
	if len(d.ToAdd) == 0 && len(d.ToRemove) == 0 {
		return errors.New("batch must contain at least one item")
	}
	return nil
}

// BatchItemError reports one failed item without aborting the batch.
type BatchItemError struct {
	Op      string `json:"op"`
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BatchResult reports per-item outcomes; successful items are applied even
// when others fail.
type BatchResult struct {
	Added   []*Grant         `json:"added"`
	Removed int              `json:"removed"`
	Errors  []BatchItemError `json:"errors,omitempty"`
}

func (r BatchResult) HasErrors() bool {
	return len(r.Errors) > 0
}
