package main

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/chrissnell/glacierfront/pkg/ablation"
)

func TestPrintResultJSONDropsUnboundedValues(t *testing.T) {
	res := ablation.Result{
		Rate:        math.Inf(-1),
		DLDt:        math.Inf(1),
		Numerator:   -1,
		Denominator: 0,
		Tolerance:   ablation.DefaultTolerance,
		Condition:   ablation.IllConditioned,
	}

	var buf bytes.Buffer
	if err := printResult(&buf, "flat", res, true); err != nil {
		t.Fatalf("printResult: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if out["rate"] != nil || out["dl_dt"] != nil {
		t.Errorf("expected unbounded values to be null, got rate=%v dl_dt=%v", out["rate"], out["dl_dt"])
	}
	if out["condition"] != "ill-conditioned" {
		t.Errorf("unexpected condition %v", out["condition"])
	}
}

func TestPrintResultText(t *testing.T) {
	var buf bytes.Buffer
	res := ablation.Result{Rate: -5, DLDt: 9, Numerator: 0.9, Denominator: 0.1, Condition: ablation.WellConditioned}
	if err := printResult(&buf, "example", res, false); err != nil {
		t.Fatalf("printResult: %v", err)
	}
	if !strings.Contains(buf.String(), "rate:        -5 m/yr") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	if _, err := loadConfig("config.yaml", "toml"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
