package domain

import "time"

type MemberKind int

const (
	KindOther MemberKind = iota
	KindPlain
	KindDerivedView
)

func (k MemberKind) String() string {
	switch k {
	case KindPlain:
		return "PLAIN"
	case KindDerivedView:
		return "DERIVED_VIEW"
	default:
		return "OTHER"
	}
}

// SourceResource is a dataset whose tables get backed up. Members is filled
// lazily: nil means "not listed yet".
type SourceResource struct {
	ID       string
	Location string
	Members  []Member
}

type Member struct {
	ID   string
	Kind MemberKind
}

// BackupContainer is a dataset holding the snapshots of one source dataset
// taken at Instant.
type BackupContainer struct {
	ID               string
	SourceResourceID string
	Instant          time.Time
	Location         string
}

// BackupSetView groups every container sharing one instant.
type BackupSetView struct {
	Key        string
	Instant    time.Time
	Containers []BackupContainer
}

func (v BackupSetView) SourceIDs() []string {
	ids := make([]string, 0, len(v.Containers))
	for _, c := range v.Containers {
		ids = append(ids, c.SourceResourceID)
	}
	return ids
}

type SnapshotRecord struct {
	ContainerID string
	MemberID    string
}

type DerivedViewDefinition struct {
	ViewID            string
	Query             string
	RefreshEnabled    *bool
	RefreshIntervalMs *int64
}

type OperationOutcome struct {
	TargetID string `json:"target_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Err      error  `json:"-"`
}

type BatchResult struct {
	ProducedContainerID string    `json:"produced_container_id"`
	SourceResourceID    string    `json:"source_resource_id"`
	Instant             time.Time `json:"instant"`
	SuccessCount        int       `json:"success_count"`
	FailureCount        int       `json:"failure_count"`
	Errors              []string  `json:"errors,omitempty"`
}

func (r BatchResult) Success() bool {
	return r.FailureCount == 0
}

// Absorb folds member outcomes into the batch counters.
func (r *BatchResult) Absorb(outcomes []OperationOutcome) {
	for _, o := range outcomes {
		if o.Success {
			r.SuccessCount++
			continue
		}
		r.FailureCount++
		r.Errors = append(r.Errors, o.TargetID+": "+o.Error)
	}
}

type RestoreOutcome struct {
	SourceBackupContainerID string   `json:"source_backup_container_id"`
	TargetResourceID        string   `json:"target_resource_id"`
	MembersRestored         int      `json:"members_restored"`
	MembersFailed           int      `json:"members_failed"`
	ViewsRecreated          int      `json:"views_recreated"`
	ViewsFailed             int      `json:"views_failed"`
	Success                 bool     `json:"success"`
	Errors                  []string `json:"errors,omitempty"`
}

type DeleteResult struct {
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	Errors       []string `json:"errors,omitempty"`
}

func (r DeleteResult) Success() bool {
	return r.FailureCount == 0
}
