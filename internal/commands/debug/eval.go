package debug

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
	"github.com/bwmarrin/discordgo"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const (
	exportPath = "github.com/IsekaiTavern/TavernBotGo/internal/commands/debug"
	maxResult  = 1900
)

func createEvalCommand() *discord.Command {
	return discord.NewCommand(
		"eval",
		"Evaluate Go code against the running bot",
		"debug",
		evalHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "code",
			Description: "Go expression or statements",
			Required:    true,
		},
	).AsDev()
}

func evalHandler(ctx *discord.CommandContext) error {
	if !config.Get().IsDevUser(ctx.User().ID) {
		return errors.NewPermissionError("debug.eval_denied", "user %s may not eval", ctx.User().ID)
	}
	if err := ctx.Defer(); err != nil {
		return err
	}

	start := time.Now()
	result, err := Evaluate(ctx.GetStringOption("code"), map[string]reflect.Value{
		"Ctx":     reflect.ValueOf(ctx),
		"Bot":     reflect.ValueOf(ctx.Client),
		"Session": reflect.ValueOf(ctx.Session),
		"DB":      reflect.ValueOf(database.Get()),
		"Cache":   reflect.ValueOf(cache.Get()),
		"Music":   reflect.ValueOf(music.GetManager()),
		"Config":  reflect.ValueOf(config.Get()),
	})
	logger.Debug(fmt.Sprintf("Eval completado en %s", time.Since(start)), "DebugEval")

	if err != nil {
		return ctx.EditReply(ctx.T("debug.eval_error", truncate(err.Error())))
	}
	return ctx.EditReply(ctx.T("debug.eval_result", result))
}

// Evaluate runs code in a fresh yaegi interpreter. Every value in vars is
// in scope by name.
func Evaluate(code string, vars map[string]reflect.Value) (string, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("load stdlib: %w", err)
	}

	if len(vars) > 0 {
		if err := i.Use(interp.Exports{exportPath + "/debug": vars}); err != nil {
			return "", fmt.Errorf("export variables: %w", err)
		}
		if _, err := i.Eval(`import . "` + exportPath + `"`); err != nil {
			return "", fmt.Errorf("import variables: %w", err)
		}
	}

	res, err := i.Eval(cleanCode(code))
	if err != nil {
		return "", err
	}
	if !res.IsValid() {
		return "nil", nil
	}
	return truncate(fmt.Sprintf("%#v", res.Interface())), nil
}

// cleanCode strips a markdown code fence
func cleanCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "```go")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(code, "```")
	return strings.TrimSpace(code)
}

func truncate(s string) string {
	if len(s) > maxResult {
		return s[:maxResult] + "... (truncado)"
	}
	return s
}
