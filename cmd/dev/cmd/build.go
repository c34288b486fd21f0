package cmd

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

const builderImage = "gophertribe/gobuild:1.25-bookworm"

// targets maps binary names to their main packages.
var targets = map[string]string{
	"twi": "./cmd/twi",
	"dev": "./cmd/dev",
}

func targetNames() string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a binary of the project into dist/",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			target, _ := flags.GetString("target")
			goos, _ := flags.GetString("os")
			goarch, _ := flags.GetString("arch")
			version, _ := flags.GetString("version")
			crossOS, _ := flags.GetString("cross-os")
			crossArch, _ := flags.GetString("cross-arch")

			pkg, ok := targets[target]
			if !ok {
				return fmt.Errorf("unknown target %q, expected one of %s", target, targetNames())
			}

			if goos != runtime.GOOS || goarch != runtime.GOARCH {
				noCache, err := flags.GetBool("no-cache")
				if err != nil {
					return fmt.Errorf("could not get no-cache flag: %w", err)
				}
				// rerun this command inside the builder image of the requested platform
				return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", goos, goarch),
					[]string{"build", "--target", target, "--version", version, "--cross-os", crossOS, "--cross-arch", crossArch},
					build.DockerBuildOpts{
						NoCache: noCache,
						Image:   builderImage,
					})
			}
			if crossOS != "" && crossArch != "" {
				goos, goarch = crossOS, crossArch
			}
			return build.GoBuild("dist/"+target, pkg, build.GoBuildOpts{
				Version:       version,
				InjectVersion: true,
				ConfigPackage: "main",
				EnableCgo:     target == "twi",
				Arch:          goarch,
				OS:            goos,
			})
		},
	}
	cmd.Flags().String("target", "twi", "binary to build: "+targetNames())
	cmd.Flags().Bool("no-cache", false, "do not use cache when building the app")
	cmd.Flags().String("version", "latest", "version of the binary")
	cmd.Flags().String("os", runtime.GOOS, "os to build for")
	cmd.Flags().String("arch", runtime.GOARCH, "arch to build for")
	cmd.Flags().String("cross-os", "", "os to cross-compile for")
	cmd.Flags().String("cross-arch", "", "arch to cross-compile for")

	return cmd
}
