package transport

import "testing"

func TestRuntimeLifecycle(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rt.Close(); err == nil {
		t.Fatal("expected error on second Close")
	}
}

func TestRuntimeCloseWithOpenContext(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	certFile, keyFile := writeCertFiles(t)
	tctx, err := NewContext(rt, ContextConfig{CertFile: certFile, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	if err := rt.Close(); err == nil {
		t.Fatal("expected error closing runtime with an open context")
	}
	if err := tctx.Close(); err != nil {
		t.Fatalf("context Close: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("runtime Close after context: %v", err)
	}
}

func TestNewContextAfterRuntimeClosed(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	certFile, keyFile := writeCertFiles(t)
	if _, err := NewContext(rt, ContextConfig{CertFile: certFile, KeyFile: keyFile}); err == nil {
		t.Fatal("expected error creating context on closed runtime")
	}
}
