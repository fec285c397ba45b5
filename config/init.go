package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// PromptForInit presents a Huh form for choosing which sample files to
// write. Files that already exist are offered for overwrite separately.
// Returns (selectedFiles, overwrite, proceed, error).
func PromptForInit(files []SampleFile) ([]SampleFile, bool, bool, error) {
	options := make([]huh.Option[string], 0, len(files))
	selected := make([]string, 0, len(files))
	anyExisting := false
	for _, f := range files {
		label := f.Name
		if _, err := os.Stat(f.Path); err == nil {
			label += " (exists)"
			anyExisting = true
		} else {
			selected = append(selected, f.Name)
		}
		options = append(options, huh.NewOption(label, f.Name))
	}

	overwrite := false
	fields := []huh.Field{
		huh.NewMultiSelect[string]().
			Title("Write sample configuration?").
			Description(GetConfigDir()).
			Options(options...).
			Value(&selected),
	}
	if anyExisting {
		fields = append(fields, huh.NewConfirm().
			Title("Overwrite files that already exist?").
			Value(&overwrite))
	}

	form := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCharm())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, false, false, nil
		}
		return nil, false, false, fmt.Errorf("form error: %w", err)
	}

	chosen := make([]SampleFile, 0, len(selected))
	for _, f := range files {
		for _, name := range selected {
			if f.Name == name {
				chosen = append(chosen, f)
			}
		}
	}
	return chosen, overwrite, true, nil
}

// Confirm asks a yes/no question on the terminal.
func Confirm(title string) (bool, error) {
	ok := false
	err := huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&ok).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	return ok, nil
}
