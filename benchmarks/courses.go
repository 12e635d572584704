package benchmarks

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"
	"github.com/zeu5/edgeracer/geometry"
	"github.com/zeu5/edgeracer/track"
	"github.com/zeu5/edgeracer/util"
)

var exportCourse string

func describeCourse(c *track.Course) string {
	return fmt.Sprintf("%-10s walls:%3d start:(%.0f, %.0f) finish:(%.0f, %.0f) distance:%.1f",
		c.Name, len(c.Walls), c.Start.X, c.Start.Y, c.Finish.X, c.Finish.Y, geometry.Distance(c.Start, c.Finish))
}

func CoursesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List the preset courses or export one as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportCourse == "" {
				for _, name := range track.PresetNames() {
					c, _ := track.Preset(name)
					fmt.Fprintln(cmd.OutOrStdout(), describeCourse(c))
				}
				return nil
			}
			c, ok := track.Preset(exportCourse)
			if !ok {
				return fmt.Errorf("unknown course %q, available: %v", exportCourse, track.PresetNames())
			}
			if err := util.EnsureDir(saveFile); err != nil {
				return err
			}
			out := path.Join(saveFile, c.Name+".json")
			if err := track.Save(out, c); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Exported", c.Name, "to", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&exportCourse, "export", "", "Preset course to export into the save folder")
	return cmd
}
