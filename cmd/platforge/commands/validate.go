package commands

import (
	"fmt"

	"github.com/platforge/platforge/pkg/execgroup"
	"github.com/platforge/platforge/pkg/resolve"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate settings and declaration files without resolving",
		Long: `Validate parses the build settings against their schema, loads the
declaration files, and checks every target's exec-group surface: reserved
group names, group collisions, transition tags, and references to exec
groups from actions, exec_properties, and exec_group_compatible_with.

No platform or toolchain resolution is performed.`,
		Example: `  # Validate the default settings.cue and its declaration files
  platforge validate

  # Validate an alternate settings file
  platforge validate -s ci/settings.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ws, err := loadWorkspace(ctx, settingsPath)
			if err != nil {
				return err
			}

			var problems int
			for _, spec := range ws.Snapshot.Targets {
				index, err := execgroup.BuildIndex(spec.Rule, ws.Settings.AutoExecGroups)
				if err != nil {
					log.Error().Str("target", string(spec.Label)).Msg(err.Error())
					problems++
					continue
				}

				var errs []error
				errs = append(errs, resolve.ValidateGroupCompatibleWith(spec.Label, spec.ExecGroupCompatibleWith, index)...)
				errs = append(errs, resolve.ValidateExecProperties(spec.Label, spec.ExecProperties, index)...)
				for _, action := range spec.Actions {
					if action.Group != "" && !index.Has(action.Group) {
						errs = append(errs, resolve.NewActionUnknownGroupError(spec.Label, action.Group))
					}
				}
				for _, dep := range spec.Deps {
					kind, name, ok := resolve.ParseTransition(dep.Transition)
					if !ok {
						errs = append(errs, fmt.Errorf("dep %q on %s: invalid transition tag %q", dep.Attr, spec.Label, dep.Transition))
						continue
					}
					if kind == resolve.TransitionExecNamed && !index.Has(name) {
						errs = append(errs, resolve.NewTransitionUnknownGroupError(spec.Label, dep.Attr, name))
					}
				}

				for _, err := range errs {
					log.Error().Str("target", string(spec.Label)).Msg(err.Error())
				}
				problems += len(errs)
			}

			if problems > 0 {
				return fmt.Errorf("validation failed with %d problems", problems)
			}

			log.Info().
				Int("targets", len(ws.Snapshot.Targets)).
				Int("platforms", len(ws.Snapshot.Platforms)).
				Msg("Validation passed")
			return nil
		},
	}

	return cmd
}
