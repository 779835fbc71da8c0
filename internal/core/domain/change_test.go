package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeType(t *testing.T) {
	tests := []struct {
		changeType  ChangeType
		valid       bool
		description string
	}{
		{ChangeTypeNewDocument, true, "Now tracking"},
		{ChangeTypeTimeUpdated, true, "Document updated"},
		{ChangeTypeUserChanged, true, "Modifier changed"},
		{ChangeTypeCorrection, true, "Audit correction"},
		{ChangeType("renamed"), false, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.changeType.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.changeType.IsValid())
			assert.Equal(t, tt.description, tt.changeType.Description())
		})
	}
}

func TestChangeDetectionResult_ShouldNotify(t *testing.T) {
	assert.False(t, ChangeDetectionResult{}.ShouldNotify())
	assert.False(t, ChangeDetectionResult{Debounced: true}.ShouldNotify())
	assert.True(t, ChangeDetectionResult{HasChanged: true}.ShouldNotify())
	assert.False(t, ChangeDetectionResult{HasChanged: true, Debounced: true}.ShouldNotify())
}

func TestChangeAuditRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  ChangeAuditRecord
		wantErr bool
	}{
		{name: "time updated", record: ChangeAuditRecord{ChangeType: ChangeTypeTimeUpdated}},
		{name: "correction with target", record: ChangeAuditRecord{ChangeType: ChangeTypeCorrection, CorrectsID: "a1"}},
		{name: "correction without target", record: ChangeAuditRecord{ChangeType: ChangeTypeCorrection}, wantErr: true},
		{name: "unknown type", record: ChangeAuditRecord{ChangeType: "renamed"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}
