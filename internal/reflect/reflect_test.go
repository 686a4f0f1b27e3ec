package reflect

import "testing"

func TestThinkTool_AcknowledgesReflection(t *testing.T) {
	var tool ThinkTool
	got := tool.Reflect("three sources agree, one outlier, proceed")
	if got != "Reflection recorded: three sources agree, one outlier, proceed" {
		t.Fatalf("unexpected acknowledgement: %q", got)
	}
}

func TestThinkTool_AcknowledgesEmptyReflection(t *testing.T) {
	var tool ThinkTool
	if got := tool.Reflect("   "); got != "Reflection recorded." {
		t.Fatalf("unexpected acknowledgement for empty input: %q", got)
	}
}
