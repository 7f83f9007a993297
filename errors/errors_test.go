package errors

import (
	"errors"
	"fmt"
	"testing"
)

// TestCodeAndWrap 验证 Wrap/Code/errors.Is 的基础行为。
func TestCodeAndWrap(t *testing.T) {
	base := errors.New("x")
	e := Wrap(CodeInvalidSize, "bad size", base)
	if Code(e) != CodeInvalidSize {
		t.Fatalf("code=%d", Code(e))
	}
	if !errors.Is(e, base) {
		t.Fatalf("unwrap failed")
	}
}

// TestWithMessageAndCodeFallback 验证 WithMessage 及默认错误码回退。
func TestWithMessageAndCodeFallback(t *testing.T) {
	base := errors.New("x")
	w := WithMessage(base, "ctx")
	if w == nil {
		t.Fatalf("expected error")
	}
	if Code(base) != CodeInternal {
		t.Fatalf("expected default code")
	}
	if Code(nil) != 0 {
		t.Fatalf("expected code 0 for nil")
	}
	if WithMessage(nil, "ctx") != nil {
		t.Fatalf("expected nil passthrough")
	}
}

// TestIsMatchesByCode 验证哨兵 CodeError 可按错误码被 errors.Is 命中（包括多层包装）。
func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeNotInitialized, "pool not initialized")
	e := fmt.Errorf("acquire: %w", New(CodeNotInitialized, "other text"))
	if !errors.Is(e, sentinel) {
		t.Fatalf("expected match by code")
	}
	if errors.Is(e, New(CodeInvalidSize, "x")) {
		t.Fatalf("unexpected match")
	}
	var nilErr *CodeError
	if nilErr.Error() != "" {
		t.Fatalf("nil error text")
	}
}

// TestNewAndWithMessageOnCodeError 验证 CodeError 的 New/WithMessage/Wrap 组合行为。
func TestNewAndWithMessageOnCodeError(t *testing.T) {
	ce := New(CodeCopyOverflow, "overflow")
	if ce.Error() != "512 overflow" {
		t.Fatalf("text=%q", ce.Error())
	}
	if ce.Unwrap() != nil {
		t.Fatalf("expected nil unwrap")
	}
	w := WithMessage(ce, "ctx")
	if Code(w) != CodeCopyOverflow {
		t.Fatalf("code=%d", Code(w))
	}
	w2 := Wrap(CodeBadRequest, "ctx", nil)
	if Code(w2) != CodeBadRequest {
		t.Fatalf("code=%d", Code(w2))
	}
}
