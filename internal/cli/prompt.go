package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/semmidev/bqvault/internal/domain"
)

var errAborted = errors.New("aborted")

type Prompter interface {
	SelectBackup(title string, sets []domain.BackupSetView) (domain.BackupSetView, error)
	Confirm(title, description string) (bool, error)
}

type huhPrompter struct{}

func (huhPrompter) SelectBackup(title string, sets []domain.BackupSetView) (domain.BackupSetView, error) {
	if len(sets) == 0 {
		return domain.BackupSetView{}, domain.NewNotFoundError("select backup", "any backup")
	}

	options := make([]huh.Option[int], 0, len(sets))
	for i, set := range sets {
		label := fmt.Sprintf("%s  (%d dataset(s): %s)", set.Key, len(set.Containers), strings.Join(set.SourceIDs(), ", "))
		options = append(options, huh.NewOption(label, i))
	}

	var chosen int
	err := huh.NewSelect[int]().
		Title(title).
		Options(options...).
		Value(&chosen).
		Run()
	if err != nil {
		return domain.BackupSetView{}, err
	}
	return sets[chosen], nil
}

func (huhPrompter) Confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

// chooseSet resolves --at, falling back to an interactive pick.
func chooseSet(p Prompter, title, at string, sets []domain.BackupSetView) (domain.BackupSetView, error) {
	if at == "" {
		return p.SelectBackup(title, sets)
	}

	instant, err := parseInstant(at)
	if err != nil {
		return domain.BackupSetView{}, err
	}
	for _, set := range sets {
		if set.Instant.Equal(instant) {
			return set, nil
		}
	}
	return domain.BackupSetView{}, domain.NewNotFoundError("select backup", instant.Format("2006-01-02T15:04:05Z"))
}

func confirmOrAbort(p Prompter, yes bool, title, description string) error {
	if yes {
		return nil
	}
	ok, err := p.Confirm(title, description)
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}
	return nil
}
