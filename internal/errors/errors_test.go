package errors

import (
	"fmt"
	"testing"
)

func TestSnagError_Error(t *testing.T) {
	err := &SnagError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "report not found",
	}

	expected := "NOT_FOUND: report not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("context is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "context is required" {
		t.Errorf("Message = %q, want %q", err.Message, "context is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01HZX")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != "01HZX" {
		t.Errorf("Details[id] = %v, want %q", err.Details["id"], "01HZX")
	}
}

func TestNewDuplicateCapture(t *testing.T) {
	err := NewDuplicateCapture("7ca32e75", []string{"a", "b"})

	if err.Code != ErrDuplicateCapture {
		t.Errorf("Code = %q, want %q", err.Code, ErrDuplicateCapture)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["context_hash"] != "7ca32e75" {
		t.Errorf("Details[context_hash] = %v, want %q", err.Details["context_hash"], "7ca32e75")
	}
	if ids, ok := err.Details["existing_ids"].([]string); !ok || len(ids) != 2 {
		t.Errorf("Details[existing_ids] = %v, want 2 ids", err.Details["existing_ids"])
	}
}

func TestNewBodyTooLarge(t *testing.T) {
	err := NewBodyTooLarge(65536, 70000)

	if err.Code != ErrBodyTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, ErrBodyTooLarge)
	}
	if err.Status != 413 {
		t.Errorf("Status = %d, want 413", err.Status)
	}
	if err.Details["max_bytes"] != 65536 {
		t.Errorf("Details[max_bytes] = %v, want 65536", err.Details["max_bytes"])
	}
	if err.Details["actual_bytes"] != 70000 {
		t.Errorf("Details[actual_bytes] = %v, want 70000", err.Details["actual_bytes"])
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/x.jsonl")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrFileNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["path"] != "/tmp/x.jsonl" {
		t.Errorf("Details[path] = %v, want /tmp/x.jsonl", err.Details["path"])
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %v, want %v", err.Code, ErrCancelled)
	}
	if err.Status != 499 {
		t.Errorf("Status = %d, want 499", err.Status)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q, want %q", err.Message, "export cancelled")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		// Message should be generic (not leak internal details)
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("x"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("x"), ErrDuplicateCapture) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-SnagError", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for non-SnagError")
		}
	})

	t.Run("wrapped SnagError", func(t *testing.T) {
		wrapped := fmt.Errorf("export: %w", NewNotFound("x"))
		if !Is(wrapped, ErrNotFound) {
			t.Error("Is() = false, want true for wrapped SnagError")
		}
		if Is(wrapped, ErrBodyTooLarge) {
			t.Error("Is() = true, want false for wrong code on wrapped SnagError")
		}
	})
}
