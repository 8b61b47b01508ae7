package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paleotech/toolbox7/pkg/appleevent"
	"github.com/paleotech/toolbox7/pkg/core"
)

var (
	aeventClass string
	aeventID    string
	aeventText  string
)

var aeventCmd = &cobra.Command{
	Use:   "aevent",
	Short: "Drive the AppleEvent Manager",
}

var aeventSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Build a Core and dispatch a single AppleEvent through its handler table",
	RunE:  runAeventSend,
}

var aeventRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Build a Core with recording enabled, send one event, and print the recorded script text",
	RunE:  runAeventRecord,
}

func init() {
	for _, c := range []*cobra.Command{aeventSendCmd, aeventRecordCmd} {
		c.Flags().StringVar(&aeventClass, "class", "aevt", "event class keyword")
		c.Flags().StringVar(&aeventID, "id", "oapp", "event ID keyword")
		c.Flags().StringVar(&aeventText, "text", "", "optional direct-object text parameter")
	}
	aeventCmd.AddCommand(aeventSendCmd)
	aeventCmd.AddCommand(aeventRecordCmd)
}

func bootForAevents() (*core.Core, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := initLogger(cfg); err != nil {
		return nil, err
	}
	cc := coreConfigFrom(cfg)
	c := core.New(cc, newWallTicks(), newCLIResolver(cfg.Extension), nil)
	return c, nil
}

func buildEvent(c *core.Core) (*appleevent.Event, *appleevent.Event, error) {
	class := appleevent.NewKeyword(aeventClass)
	id := appleevent.NewKeyword(aeventID)

	event, osErr := c.AppleEvents.CreateAppleEvent(class, id, appleevent.Descriptor{}, 0, 0)
	if !osErr.NoErr() {
		return nil, nil, fmt.Errorf("creating event: %s", osErr.Error())
	}
	if aeventText != "" {
		desc, osErr := c.AppleEvents.NewTextDesc(aeventText)
		if !osErr.NoErr() {
			return nil, nil, fmt.Errorf("creating text param: %s", osErr.Error())
		}
		if osErr := c.AppleEvents.PutParam(event, appleevent.NewKeyword("----"), desc); !osErr.NoErr() {
			return nil, nil, fmt.Errorf("putting direct object: %s", osErr.Error())
		}
	}

	reply, osErr := c.AppleEvents.CreateAppleEvent(appleevent.NewKeyword("aevt"), appleevent.NewKeyword("ansr"), appleevent.Descriptor{}, 0, 0)
	if !osErr.NoErr() {
		return nil, nil, fmt.Errorf("creating reply: %s", osErr.Error())
	}
	return event, reply, nil
}

func runAeventSend(cmd *cobra.Command, args []string) error {
	c, err := bootForAevents()
	if err != nil {
		return err
	}

	event, reply, err := buildEvent(c)
	if err != nil {
		return err
	}

	outcome, osErr := c.AppleEvents.ProcessAppleEvent(event, reply)
	fmt.Printf("dispatch outcome: %s\n", outcome)
	if !osErr.NoErr() {
		fmt.Printf("dispatch error: %s\n", osErr.Error())
	}
	return nil
}

func runAeventRecord(cmd *cobra.Command, args []string) error {
	c, err := bootForAevents()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rec := c.AppleEvents.EnableRecording(cfg.AppleEvent.RecordingCapacity)

	event, reply, err := buildEvent(c)
	if err != nil {
		return err
	}

	if _, osErr := c.AppleEvents.ProcessAppleEvent(event, reply); !osErr.NoErr() {
		fmt.Printf("dispatch error: %s\n", osErr.Error())
	}

	for _, entry := range rec.Entries() {
		fmt.Println(entry.ScriptText())
	}
	return nil
}
