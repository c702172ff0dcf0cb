package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/v1/tasks", "200", 0.123)

	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/tasks", "200"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordTaskCreated(t *testing.T) {
	TasksCreatedTotal.Reset()

	RecordTaskCreated("第一人称")
	RecordTaskCreated("悬疑")
	RecordTaskCreated("第一人称")

	firstPerson := testutil.ToFloat64(TasksCreatedTotal.WithLabelValues("第一人称"))
	if firstPerson != 2.0 {
		t.Errorf("Expected style counter to be 2.0, got %f", firstPerson)
	}

	suspense := testutil.ToFloat64(TasksCreatedTotal.WithLabelValues("悬疑"))
	if suspense != 1.0 {
		t.Errorf("Expected style counter to be 1.0, got %f", suspense)
	}
}

func TestRecordTaskCompleted(t *testing.T) {
	TasksCompletedTotal.Reset()

	RecordTaskCompleted("completed", 420.5)
	RecordTaskCompleted("failed", 31.2)

	completed := testutil.ToFloat64(TasksCompletedTotal.WithLabelValues("completed"))
	if completed != 1.0 {
		t.Errorf("Expected completed counter to be 1.0, got %f", completed)
	}

	failed := testutil.ToFloat64(TasksCompletedTotal.WithLabelValues("failed"))
	if failed != 1.0 {
		t.Errorf("Expected failed counter to be 1.0, got %f", failed)
	}
}

func TestUpdateTaskMetrics(t *testing.T) {
	UpdateTaskMetrics(3, 12)

	inProgress := testutil.ToFloat64(TasksInProgress)
	if inProgress != 3.0 {
		t.Errorf("Expected tasks in progress to be 3.0, got %f", inProgress)
	}

	queueDepth := testutil.ToFloat64(TasksQueueDepth)
	if queueDepth != 12.0 {
		t.Errorf("Expected queue depth to be 12.0, got %f", queueDepth)
	}
}

func TestRecordStageDuration(t *testing.T) {
	StageDuration.Reset()

	RecordStageDuration("transcribe", 42.1)
	RecordStageDuration("synthesize", 18.7)

	// Just verify no errors
	// Actual histogram values require more complex verification
}

func TestRecordSegmentAssembled(t *testing.T) {
	SegmentsAssembledTotal.Reset()

	RecordSegmentAssembled("narration")
	RecordSegmentAssembled("narration")
	RecordSegmentAssembled("video")

	narration := testutil.ToFloat64(SegmentsAssembledTotal.WithLabelValues("narration"))
	if narration != 2.0 {
		t.Errorf("Expected narration counter to be 2.0, got %f", narration)
	}

	video := testutil.ToFloat64(SegmentsAssembledTotal.WithLabelValues("video"))
	if video != 1.0 {
		t.Errorf("Expected video counter to be 1.0, got %f", video)
	}
}

func TestRecordExternalCall(t *testing.T) {
	ExternalCallDuration.Reset()
	ExternalCallErrors.Reset()

	RecordExternalCall("llm", "chat", 2.5, false)
	RecordExternalCall("llm", "chat", 1.1, true)

	errors := testutil.ToFloat64(ExternalCallErrors.WithLabelValues("llm", "chat"))
	if errors != 1.0 {
		t.Errorf("Expected external call errors to be 1.0, got %f", errors)
	}
}

func TestRecordStorageOperation(t *testing.T) {
	StorageOperationsTotal.Reset()
	StorageBytesTransferred.Reset()

	RecordStorageOperation("upload", "success", 1048576, "upload")

	counter := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("upload", "success"))
	if counter != 1.0 {
		t.Errorf("Expected storage operation counter to be 1.0, got %f", counter)
	}

	bytes := testutil.ToFloat64(StorageBytesTransferred.WithLabelValues("upload"))
	if bytes != 1048576.0 {
		t.Errorf("Expected bytes transferred to be 1048576.0, got %f", bytes)
	}
}

func TestRecordError(t *testing.T) {
	ErrorsTotal.Reset()

	RecordError("api", "validation")
	RecordError("worker", "ffmpeg")
	RecordError("api", "validation")

	apiErrors := testutil.ToFloat64(ErrorsTotal.WithLabelValues("api", "validation"))
	if apiErrors != 2.0 {
		t.Errorf("Expected API validation errors to be 2.0, got %f", apiErrors)
	}

	workerErrors := testutil.ToFloat64(ErrorsTotal.WithLabelValues("worker", "ffmpeg"))
	if workerErrors != 1.0 {
		t.Errorf("Expected worker FFmpeg errors to be 1.0, got %f", workerErrors)
	}
}

func BenchmarkRecordHTTPRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordHTTPRequest("POST", "/api/v1/tasks", "200", 0.123)
	}
}
