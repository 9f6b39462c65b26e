package ctxutil

import (
	"context"
	"testing"
)

func TestRequestDataRoundTrip(t *testing.T) {
	ctx := WithRequestData(context.Background(), &RequestData{UserID: "u1", SessionID: "s1"})
	rd := GetRequestData(ctx)
	if rd == nil || rd.UserID != "u1" || rd.SessionID != "s1" {
		t.Fatalf("unexpected request data: %+v", rd)
	}
	if GetTraceData(ctx) != nil {
		t.Fatalf("trace data should be absent")
	}
}
