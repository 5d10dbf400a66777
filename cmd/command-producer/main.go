// Command command-producer publishes match commands to the Kafka command
// topic, the way a referee clock device or a scripted replay would.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/urfave/cli/v2"

	"github.com/youth-scoreboard/internal/domain"
)

func main() {
	app := &cli.App{
		Name:  "command-producer",
		Usage: "Publish match commands to Kafka",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "brokers", Value: "localhost:9092", Usage: "Kafka brokers (comma-separated)"},
			&cli.StringFlag{Name: "topic", Value: "match-commands", Usage: "Kafka command topic"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Replay newline-delimited JSON commands from a file (\"-\" for stdin)"},
			&cli.DurationFlag{Name: "interval", Usage: "Delay between replayed commands"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Command type for a single command (start, goal, pause, ...)"},
			&cli.StringFlag{Name: "match", Aliases: []string{"m"}, Usage: "Match id"},
			&cli.StringFlag{Name: "pin", EnvVars: []string{"SCOREBOARD_PIN"}, Usage: "Coach or referee PIN"},
			&cli.StringFlag{Name: "player", Usage: "Player id (scorer, carded player or player going off)"},
			&cli.StringFlag{Name: "player-in", Usage: "Player id coming on"},
			&cli.StringFlag{Name: "assist", Usage: "Assisting player id"},
			&cli.BoolFlag{Name: "own-goal", Usage: "Mark the goal as an own goal"},
			&cli.StringFlag{Name: "side", Usage: "Score side for decrement_score (home or away)"},
			&cli.StringFlag{Name: "card", Usage: "Card colour (yellow or red)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	var cmds []domain.Command
	if path := c.String("file"); path != "" {
		in := os.Stdin
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening command file: %w", err)
			}
			defer f.Close()
			in = f
		}
		var err error
		cmds, err = readCommands(in)
		if err != nil {
			return err
		}
	} else {
		cmd, err := validate(domain.Command{
			Type:           domain.CommandType(c.String("type")),
			MatchID:        c.String("match"),
			PIN:            c.String("pin"),
			PlayerID:       c.String("player"),
			PlayerInID:     c.String("player-in"),
			AssistPlayerID: c.String("assist"),
			IsOwnGoal:      c.Bool("own-goal"),
			Side:           domain.Side(c.String("side")),
			Card:           domain.CardType(c.String("card")),
		})
		if err != nil {
			return err
		}
		cmds = []domain.Command{cmd}
	}

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(strings.Split(c.String("brokers"), ","), config)
	if err != nil {
		return fmt.Errorf("creating producer: %w", err)
	}

	// Stop replaying on interrupt
	stop := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		close(stop)
	}()

	sent, failed := publish(producer, c.String("topic"), cmds, c.Duration("interval"), stop)
	fmt.Printf("Sent: %d, Errors: %d\n", sent, failed)
	if failed > 0 {
		return fmt.Errorf("%d commands failed", failed)
	}
	return nil
}
