package support

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/imread/cmd/imread/cmd"
	"github.com/cucumber/godog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ResetFlags restores every flag of c and its children to its default.
// cobra keeps parsed values between Execute calls in the same process.
func ResetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		ResetFlags(sub)
	}
}

// iRunCommand executes an imread command line in-process.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] != "imread" {
		return fmt.Errorf("only imread commands can be run, got %q", parts[0])
	}

	root := cmd.GetRootCommand()
	ResetFlags(root)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(parts[1:])

	testCtx.LastError = root.Execute()
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastExitCode = 0
	if testCtx.LastError != nil {
		testCtx.LastExitCode = 1
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed: %w\nOutput: %s\nStderr: %s",
			testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	expectedText = testCtx.substituteCommandVariables(expectedText)
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	text = testCtx.substituteCommandVariables(text)
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldHaveLines(n int) error {
	got := strings.Count(testCtx.LastOutput, "\n")
	if got != n {
		return fmt.Errorf("expected %d output lines, got %d\nActual output: %s", n, got, testCtx.LastOutput)
	}
	return nil
}

// lineShouldStartWith checks a 1-based output line.
func (testCtx *TestContext) lineShouldStartWith(n int, prefix string) error {
	prefix = testCtx.substituteCommandVariables(prefix)
	lines := strings.Split(testCtx.LastOutput, "\n")
	if n < 1 || n > len(lines) {
		return fmt.Errorf("output has no line %d\nActual output: %s", n, testCtx.LastOutput)
	}
	if !strings.HasPrefix(lines[n-1], prefix) {
		return fmt.Errorf("line %d is %q, want prefix %q", n, lines[n-1], prefix)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	if !json.Valid([]byte(testCtx.LastOutput)) {
		return fmt.Errorf("output is not valid JSON: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidCSVWithRows(rows int) error {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if len(records) != rows+1 {
		return fmt.Errorf("expected %d CSV rows plus header, got %d records", rows, len(records))
	}
	return nil
}

// theJSONItemShouldHaveStatus checks items[index].status of a JSON report.
func (testCtx *TestContext) theJSONItemShouldHaveStatus(index int, status string) error {
	var report struct {
		Items []struct {
			Index  int    `json:"index"`
			Status string `json:"status"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &report); err != nil {
		return fmt.Errorf("failed to parse report: %w", err)
	}
	if index >= len(report.Items) {
		return fmt.Errorf("report has %d items, want index %d", len(report.Items), index)
	}
	if it := report.Items[index]; it.Index != index || it.Status != status {
		return fmt.Errorf("item %d: index %d status %q, want status %q", index, it.Index, it.Status, status)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return errors.New("expected an error but command succeeded")
	}
	if !strings.Contains(testCtx.LastError.Error(), errorText) {
		return fmt.Errorf("error does not mention '%s'\nActual error: %v", errorText, testCtx.LastError)
	}
	return nil
}

// theLogShouldReportFailures counts decode-failure warnings on stderr.
func (testCtx *TestContext) theLogShouldReportFailures(n int) error {
	got := strings.Count(testCtx.LastStderr, `"msg":"image decode failed"`)
	if got != n {
		return fmt.Errorf("expected %d decode failure logs, got %d\nStderr: %s", n, got, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) stderrShouldContain(text string) error {
	if !strings.Contains(testCtx.LastStderr, text) {
		return fmt.Errorf("stderr does not contain '%s'\nActual stderr: %s", text, testCtx.LastStderr)
	}
	return nil
}

// RegisterCommandSteps registers command execution and output steps.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should have (\d+) lines?$`, testCtx.theOutputShouldHaveLines)
	sc.Step(`^line (\d+) should start with "([^"]*)"$`, testCtx.lineShouldStartWith)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the output should be valid CSV with (\d+) rows?$`, testCtx.theOutputShouldBeValidCSVWithRows)
	sc.Step(`^report item (\d+) should have status "([^"]*)"$`, testCtx.theJSONItemShouldHaveStatus)

	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the log should report (\d+) decode failures?$`, testCtx.theLogShouldReportFailures)
	sc.Step(`^stderr should contain "([^"]*)"$`, testCtx.stderrShouldContain)
}
