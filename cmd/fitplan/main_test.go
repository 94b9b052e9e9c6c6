package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/fitness"
	"github.com/myrjola/fitplan/internal/generation"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/myrjola/fitplan/internal/testhelpers"
	"github.com/xuri/excelize/v2"
)

func noEnv(string) (string, bool) {
	return "", false
}

var profileArgs = []string{
	"--weight", "80", "--height", "175", "--goal", "75", "--weeks", "8", "--age", "30", "--gender", "male",
	"--activity", "Moderately Active", "--time", "45", "--location", "Pune", "--diet", "vegetarian",
	"--cuisine", "Maharashtrian",
}

// execute runs the CLI with args and returns its standard output.
func execute(t *testing.T, lookupEnv func(string) (string, bool), args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(lookupEnv, testhelpers.NewWriter(t))
	root.SetOut(&out)
	root.SetErr(testhelpers.NewWriter(t))
	// Keep the tests independent of a .env in the working directory.
	if !containsFlag(args, "--env-file") {
		empty := filepath.Join(t.TempDir(), "empty.env")
		if err := os.WriteFile(empty, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		args = append([]string{"--env-file", empty}, args...)
	}
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func containsFlag(args []string, flag string) bool {
	return slices.Contains(args, flag)
}

// writeEnvFile points the CLI at a fake completions API through a .env file.
func writeEnvFile(t *testing.T, completions *e2etest.CompletionServer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"OPENAI_API_KEY=sk-test",
		"FITPLAN_OPENAI_BASE_URL=" + completions.BaseURL(),
		"FITPLAN_RETRY_BACKOFF=1ms",
		"FITPLAN_DATASET_PATH=" + e2etest.WriteDataset(t),
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootHelp(t *testing.T) {
	out, err := execute(t, noEnv, "--help")
	if err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	for _, cmd := range []string{"generate", "targets", "exercises", "show", "backup"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("help does not mention %q:\n%s", cmd, out)
		}
	}
}

func TestTargets(t *testing.T) {
	out, err := execute(t, noEnv, append([]string{"targets"}, profileArgs...)...)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	var got targetsOutput
	if err = json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if got.Targets.TargetDailyIntake != 2354.69 {
		t.Errorf("target daily intake = %v, want 2354.69", got.Targets.TargetDailyIntake)
	}
	if got.Profile.ActivityLevel != fitness.ActivityModeratelyActive {
		t.Errorf("activity level = %q, want %q", got.Profile.ActivityLevel, fitness.ActivityModeratelyActive)
	}
}

func TestTargets_ProfileFileWithOverride(t *testing.T) {
	profile := plan.UserProfile{
		WeightKg: 90, HeightCm: 175, GoalWeightKg: 85, DurationWeeks: 8, Age: 30, Gender: "female",
		ActivityLevel: "Sedentary", TimeConstraintMin: 30, Location: "Oslo", DietaryType: "vegan", CuisineType: "Nordic",
	}
	b, err := json.Marshal(profile)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "profile.json")
	if err = os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, noEnv, "targets", "--profile", path, "--weight", "88")
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	var got targetsOutput
	if err = json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.Profile.WeightKg != 88 || got.Profile.CuisineType != "Nordic" {
		t.Errorf("profile = %+v, want the file with weight 88", got.Profile)
	}
}

func TestTargets_InvalidProfile(t *testing.T) {
	_, err := execute(t, noEnv, append([]string{"targets"}, append(profileArgs, "--height", "50")...)...)
	var profileErr *plan.ProfileError
	if !errors.As(err, &profileErr) {
		t.Fatalf("error = %v, want a profile error", err)
	}
	if len(profileErr.Issues) != 1 || !strings.Contains(profileErr.Issues[0], "height") {
		t.Errorf("issues = %q", profileErr.Issues)
	}
}

func TestExercises(t *testing.T) {
	out, err := execute(t, noEnv, "exercises", "--dataset", e2etest.WriteDataset(t), "--weight", "80")
	if err != nil {
		t.Fatalf("exercises: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header and 3 exercises:\n%s", len(lines), out)
	}
	if fields := strings.Fields(lines[2]); fields[1] != "Cycling" || fields[len(fields)-1] != "640" {
		t.Errorf("cycling row = %q, want 640 kcal at 80 kg", lines[2])
	}
}

func TestGenerate(t *testing.T) {
	completions := e2etest.NewCompletionServer(t, e2etest.CannedReply)
	envFile := writeEnvFile(t, completions)
	dir := t.TempDir()
	db := filepath.Join(dir, "plans.sqlite3")

	out, err := execute(t, noEnv,
		append([]string{"--env-file", envFile, "generate", "--format", "markdown", "--db", db}, profileArgs...)...)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(out, "# Fitness plan") || !strings.Contains(out, "Brisk walking") {
		t.Errorf("markdown output:\n%s", out)
	}
	if got := completions.Requests(); got != 2 {
		t.Errorf("completion requests = %d, want 2", got)
	}

	xlsx := filepath.Join(dir, "plan.xlsx")
	if _, err = execute(t, noEnv,
		append([]string{"--env-file", envFile, "generate", "-f", "xlsx", "-o", xlsx}, profileArgs...)...); err != nil {
		t.Fatalf("generate xlsx: %v", err)
	}
	f, err := excelize.OpenFile(xlsx)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 3 {
		t.Errorf("sheets = %q", got)
	}

	list, err := execute(t, noEnv, "show", "--db", db)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	rows := strings.Split(strings.TrimSpace(list), "\n")
	if len(rows) != 2 {
		t.Fatalf("archive listing:\n%s", list)
	}
	id := strings.Fields(rows[1])[0]

	shown, err := execute(t, noEnv, "show", "--db", db, id)
	if err != nil {
		t.Fatalf("show %s: %v", id, err)
	}
	var p plan.Plan
	if err = json.Unmarshal([]byte(shown), &p); err != nil || p.ID != id {
		t.Errorf("shown plan id = %q, err = %v, want %q", p.ID, err, id)
	}

	backup := filepath.Join(dir, "backup.sqlite3")
	if _, err = execute(t, noEnv, "backup", "--db", db, "--out", backup); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if _, err = os.Stat(backup); err != nil {
		t.Errorf("backup not written: %v", err)
	}
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		reply    e2etest.Reply
		args     []string
		wantKind generation.Kind
		wantErr  error
		wantReqs int
	}{
		{
			name: "unparseable reply",
			reply: func(system, user string) (int, string) {
				if strings.Contains(user, "WORKOUT") {
					return http.StatusOK, "no plan today"
				}
				return e2etest.CannedReply(system, user)
			},
			wantKind: generation.KindParse,
			wantReqs: 2,
		},
		{
			name:     "unknown format",
			reply:    e2etest.CannedReply,
			args:     []string{"--format", "pdf"},
			wantErr:  errUnknownFormat,
			wantReqs: 0,
		},
		{
			name:     "unknown policy",
			reply:    e2etest.CannedReply,
			args:     []string{"--validation", "strict"},
			wantErr:  plan.ErrUnknownPolicy,
			wantReqs: 0,
		},
		{
			name: "rejected plan",
			reply: func(system, user string) (int, string) {
				if strings.Contains(user, "WORKOUT") {
					return http.StatusOK, strings.Replace(e2etest.WorkoutReply, `"total_time": 45`, `"total_time": 70`, 1)
				}
				return e2etest.CannedReply(system, user)
			},
			args:     []string{"--validation", "reject"},
			wantReqs: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completions := e2etest.NewCompletionServer(t, tt.reply)
			args := append([]string{"--env-file", writeEnvFile(t, completions), "generate"}, profileArgs...)
			_, err := execute(t, noEnv, append(args, tt.args...)...)
			if err == nil {
				t.Fatal("generate succeeded")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantKind != "" {
				var failure *generation.Failure
				if !errors.As(err, &failure) || failure.Kind != tt.wantKind {
					t.Errorf("error = %v, want a %s failure", err, tt.wantKind)
				}
			}
			if tt.name == "rejected plan" {
				var validationErr *plan.ValidationError
				if !errors.As(err, &validationErr) || validationErr.Part != "workout" {
					t.Errorf("error = %v, want a workout validation error", err)
				}
			}
			if got := completions.Requests(); got != tt.wantReqs {
				t.Errorf("completion requests = %d, want %d", got, tt.wantReqs)
			}
		})
	}
}

func TestEnvFile(t *testing.T) {
	t.Run("explicit missing file", func(t *testing.T) {
		_, err := execute(t, noEnv, "--env-file", filepath.Join(t.TempDir(), "nope.env"), "exercises")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error = %v, want %v", err, os.ErrNotExist)
		}
	})
	t.Run("process environment wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("FITPLAN_DATASET_PATH=/does/not/exist.csv\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		dataset := e2etest.WriteDataset(t)
		lookupEnv := func(key string) (string, bool) {
			if key == "FITPLAN_DATASET_PATH" {
				return dataset, true
			}
			return "", false
		}
		if _, err := execute(t, lookupEnv, "--env-file", path, "exercises"); err != nil {
			t.Errorf("exercises: %v", err)
		}
	})
}
