package support

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

var fixtureColor = color.NRGBA{R: 30, G: 144, B: 255, A: 255}

// anImageOfPixels writes a uniform image; the encoder follows the extension.
func (testCtx *TestContext) anImageOfPixels(name string, width, height int) error {
	path := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := imaging.Save(imaging.New(width, height, fixtureColor), path); err != nil {
		return fmt.Errorf("failed to write image %s: %w", name, err)
	}
	testCtx.Files[name] = path
	return nil
}

// aCorruptPNGFile writes a PNG signature followed by garbage.
func (testCtx *TestContext) aCorruptPNGFile(name string) error {
	data := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0xba, 0xad}, 32)...)
	return testCtx.writeFile(name, data)
}

// aPNGImageNamed writes a PNG under a name whose extension says nothing.
func (testCtx *TestContext) aPNGImageNamed(name string) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(2, 2, fixtureColor), imaging.PNG); err != nil {
		return err
	}
	return testCtx.writeFile(name, buf.Bytes())
}

func (testCtx *TestContext) aTextFile(name string) error {
	return testCtx.writeFile(name, []byte("this is not an image\n"))
}

func (testCtx *TestContext) writeFile(name string, data []byte) error {
	path := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	testCtx.Files[name] = path
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.path(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

// RegisterFixtureSteps registers the steps that create input files.
func (testCtx *TestContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an image "([^"]*)" of (\d+)x(\d+) pixels$`, testCtx.anImageOfPixels)
	sc.Step(`^a corrupt PNG file "([^"]*)"$`, testCtx.aCorruptPNGFile)
	sc.Step(`^a PNG image named "([^"]*)"$`, testCtx.aPNGImageNamed)
	sc.Step(`^a text file "([^"]*)"$`, testCtx.aTextFile)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
}
