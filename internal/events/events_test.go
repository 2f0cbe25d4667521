package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderKeepsOrder(t *testing.T) {
	var r Recorder
	assert.NoError(t, r.Publish(SubjectTaskAssigned, map[string]string{"id": "1"}))
	assert.NoError(t, r.Publish(SubjectChatMessage, nil))

	assert.Equal(t, []string{SubjectTaskAssigned, SubjectChatMessage}, r.Subjects())
}

func TestNopNeverFails(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(SubjectExamGraded, struct{}{}))
}
