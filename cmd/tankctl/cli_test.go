package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	t     *testing.T
	store string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("TANK_CAPACITY_PER_SLOT", "1000")
	t.Setenv("TANK_LOG_SINKS", "console")
	return &harness{t: t, store: filepath.Join(t.TempDir(), "tanks.db")}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	c := &cli{logger: zap.NewNop()}
	root := c.command()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--store", h.store}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run("", args...)
	require.NoError(h.t, err, "tankctl %s", strings.Join(args, " "))
	return out
}

func TestCreatePushDescribe(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "created main (1000L per slot)\n", h.mustRun("create", "main"))
	assert.Equal(t, "accepted 0L of lava\n", h.mustRun("push", "main", "lava", "300"))

	h.mustRun("unlock", "main")
	assert.Equal(t, "accepted 300L of lava\n", h.mustRun("push", "main", "lava", "300"))
	assert.Equal(t, "accepted 250L of liquid_air\n", h.mustRun("push", "main", "Liquid_Air", "250"))

	out := h.mustRun("describe", "main")
	assert.Equal(t, strings.Join([]string{
		"Stored Fluids:",
		"0 - Lava: 300L (30%)",
		"1 - Liquid Air: 250L (25%)",
		"locked=false void=false selected=-1",
		"",
	}, "\n"), out)
}

func TestSimulateLeavesTankUntouched(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "main", "--capacity", "100")
	h.mustRun("unlock", "main")

	assert.Equal(t, "accepted 100L of water (simulated)\n", h.mustRun("push", "main", "water", "150", "--simulate"))
	assert.Contains(t, h.mustRun("describe", "main"), "Stored Fluids:\nlocked=false")

	h.mustRun("push", "main", "water", "80")
	assert.Equal(t, "delivered 80L of water (simulated)\n", h.mustRun("pull", "main", "water", "100", "--simulate"))
	assert.Contains(t, h.mustRun("describe", "main"), "0 - Water: 80L (80%)")
}

func TestSlotAddressedTransfers(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "main", "--capacity", "100")
	h.mustRun("unlock", "main")
	h.mustRun("push", "main", "water", "10")

	assert.Equal(t, "accepted 0L of lava\n", h.mustRun("push", "main", "lava", "10", "--slot", "0"))
	assert.Equal(t, "accepted 10L of lava\n", h.mustRun("push", "main", "lava", "10", "--slot", "1"))
	assert.Equal(t, "delivered 0L of lava\n", h.mustRun("pull", "main", "lava", "10", "--slot", "0"))
	assert.Equal(t, "delivered 10L of water\n", h.mustRun("pull", "main", "water", "10", "--slot", "0"))
	assert.Contains(t, h.mustRun("describe", "main"), "Stored Fluids:\n0 - Lava: 10L (10%)\n")
}

func TestFlagsPersist(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "main", "--void")
	h.mustRun("select", "main", "4")
	assert.Contains(t, h.mustRun("describe", "main"), "locked=true void=true selected=4")

	h.mustRun("void", "main", "false")
	h.mustRun("select", "main", "-1")
	assert.Contains(t, h.mustRun("describe", "main"), "locked=true void=false selected=-1")

	_, err := h.run("", "select", "main", "200")
	assert.Error(t, err)
	_, err = h.run("", "select", "main", "-2")
	assert.Error(t, err)
	assert.Contains(t, h.mustRun("describe", "main"), "selected=-1")
}

func TestMoveBetweenTanks(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "src", "--capacity", "100")
	h.mustRun("create", "dst", "--capacity", "30")
	h.mustRun("unlock", "src")
	h.mustRun("push", "src", "water", "100")

	assert.Equal(t, "nothing moved: destination_locked\n", h.mustRun("move", "src", "dst", "water", "50"))
	h.mustRun("unlock", "dst")
	assert.Equal(t, "moved 30L of water (stored 30L) (simulated)\n", h.mustRun("move", "src", "dst", "water", "50", "--simulate"))
	assert.Equal(t, "moved 30L of water (stored 30L)\n", h.mustRun("move", "src", "dst", "water", "50"))

	assert.Contains(t, h.mustRun("describe", "src"), "0 - Water: 70L (70%)")
	assert.Contains(t, h.mustRun("describe", "dst"), "0 - Water: 30L (100%)")

	_, err := h.run("", "move", "src", "src", "water", "1")
	assert.Error(t, err)
}

func TestExportImportJSON(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "main", "--capacity", "500")
	h.mustRun("unlock", "main")
	h.mustRun("push", "main", "water", "120")
	h.mustRun("push", "main", "lava", "500")

	exported := h.mustRun("export", "main")
	assert.JSONEq(t, `{
		"capacity_per_slot": 500,
		"0": {"FluidName": "water", "Amount": 120},
		"1": {"FluidName": "lava", "Amount": 500}
	}`, exported)

	out, err := h.run(exported, "import", "copy", "-")
	require.NoError(t, err)
	assert.Equal(t, "restored 2 slots into copy\n", out)
	assert.Equal(t, "copy\nmain\n", h.mustRun("list"))

	h.mustRun("unlock", "copy")
	assert.Contains(t, h.mustRun("describe", "copy"), "0 - Water: 120L (24%)\n1 - Lava: 500L (100%)")
}

func TestExportImportYAMLFile(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "main", "--capacity", "200")
	h.mustRun("unlock", "main")
	h.mustRun("push", "main", "steam", "50")

	exported := h.mustRun("export", "main", "--format", "yaml")
	assert.Contains(t, exported, "capacity_per_slot: 200")

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exported), 0o644))
	assert.Equal(t, "restored 1 slots into other\n", h.mustRun("import", "other", path, "--format", "yaml"))
	assert.Contains(t, h.mustRun("describe", "other"), "0 - Steam: 50L (25%)")
}

func TestImportRejectsMalformedSnapshot(t *testing.T) {
	h := newHarness(t)
	snapshot := `{"capacity_per_slot": 100, "0": {"FluidName": "water", "Amount": 10}, "1": {"FluidName": "water", "Amount": 5}}`

	_, err := h.run(snapshot, "import", "bad", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
	assert.Equal(t, "", h.mustRun("list"))

	_, err = h.run(snapshot, "import", "bad", "-", "--format", "toml")
	assert.Error(t, err)

	_, err = h.run(`{"capacityPerFluid": 100}`, "import", "nocap", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity must be positive")
	_, err = h.run(`{"capacity_per_slot": 0}`, "import", "nocap", "-")
	assert.Error(t, err)
	assert.Equal(t, "", h.mustRun("list"))
}

func TestImportSimulateDoesNotSave(t *testing.T) {
	h := newHarness(t)
	snapshot := `{"capacity_per_slot": 100, "0": {"FluidName": "water", "Amount": 10}}`

	out, err := h.run(snapshot, "import", "dry", "-", "--simulate")
	require.NoError(t, err)
	assert.Equal(t, "restored 1 slots into dry (simulated)\n", out)
	assert.Equal(t, "", h.mustRun("list"))
}

func TestDeleteAndMissingTank(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "main")

	_, err := h.run("", "create", "main")
	assert.Error(t, err)
	assert.Equal(t, "deleted main\n", h.mustRun("delete", "main"))

	_, err = h.run("", "delete", "main")
	assert.Error(t, err)
	_, err = h.run("", "describe", "main")
	assert.Error(t, err)
}

func TestInvalidArguments(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "main")

	_, err := h.run("", "push", "main", "bad fluid!", "10")
	assert.Error(t, err)
	_, err = h.run("", "push", "main", "water", "ten")
	assert.Error(t, err)
	_, err = h.run("", "void", "main", "maybe")
	assert.Error(t, err)
	_, err = h.run("", "push", "main")
	assert.Error(t, err)
}
