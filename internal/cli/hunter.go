package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newHunterCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "hunter", Short: "Hunter registration and skill growth"}
	cmd.AddCommand(newHunterRegisterCmd())
	cmd.AddCommand(newHunterStudyCmd())
	return cmd
}

// parseSkills parses "name=level,name=level" into a map, the CLI's answer
// to the HTTP/tool adapters' JSON-object skills argument.
func parseSkills(raw string) (map[string]int, error) {
	if raw == "" {
		return nil, nil
	}
	skills := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fatalErr("invalid --skills entry %q, want name=level", pair)
		}
		level, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fatalErr("invalid skill level in %q: %v", pair, err)
		}
		skills[strings.TrimSpace(kv[0])] = level
	}
	return skills, nil
}

func newHunterRegisterCmd() *cobra.Command {
	var skillsFlag string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register yourself as a hunter, optionally seeding skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			skills, err := parseSkills(skillsFlag)
			if err != nil {
				return printResult(nil, err)
			}
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			h, err := orch.HunterRegister(context.Background(), callerHeaders(cmd), skills)
			return printResult(h, err)
		},
	}
	cmd.Flags().StringVar(&skillsFlag, "skills", "", "comma-separated name=level pairs, e.g. tracking=50,negotiation=20")
	return cmd
}

func newHunterStudyCmd() *cobra.Command {
	var knowledgeID string
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Study a knowledge item to grow your skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			h, err := orch.HunterStudy(context.Background(), callerHeaders(cmd), knowledgeID)
			return printResult(h, err)
		},
	}
	cmd.Flags().StringVar(&knowledgeID, "knowledge-id", "", "knowledge item to study (required)")
	cmd.MarkFlagRequired("knowledge-id")
	return cmd
}
