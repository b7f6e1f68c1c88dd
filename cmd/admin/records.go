package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pazzo-admin/internal/controller"
	"pazzo-admin/internal/resource"
)

// mount opens a list view for key and waits for its initial load.
func (c *cli) mount(ctx context.Context, key string, opts ...controller.ListOption) (*controller.ListController, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	rc, err := c.lookup(key)
	if err != nil {
		return nil, err
	}

	log := c.logger.Named("list." + rc.Key)
	opts = append([]controller.ListOption{
		controller.WithLogger(log),
		controller.WithObserver(func(st controller.State) {
			log.Debug("state",
				zap.Int("records", len(st.Records)),
				zap.Bool("loading", st.Loading),
				zap.Bool("busy", st.Busy),
				zap.String("message", st.Message.Text),
			)
		}),
	}, opts...)

	l := controller.NewList(rc, c.client.Collection(rc), opts...)
	if err := <-l.Mount(ctx); err != nil {
		msg := l.State().Message.Text
		l.Unmount()
		if msg != "" {
			return nil, errors.New(msg)
		}
		return nil, err
	}
	return l, nil
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <resource>",
		Short: "List the records of one resource",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			l, err := c.mount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer l.Unmount()

			return render(cmd.OutOrStdout(), l.Config(), l.State())
		}),
	}
}

// recordFlags are the editable fields shared by create and update.
type recordFlags struct {
	name        string
	price       string
	description string
	image       string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Item name")
	cmd.Flags().StringVar(&f.price, "price", "", "Item price")
	cmd.Flags().StringVar(&f.description, "description", "", "Item description")
	cmd.Flags().StringVar(&f.image, "image", "", "Path to an image file")
}

// apply copies every flag the user set into the form.
func (f *recordFlags) apply(cmd *cobra.Command, form *controller.FormController) error {
	set := cmd.Flags().Changed
	if set("name") {
		if err := form.SetName(f.name); err != nil {
			return err
		}
	}
	if set("price") {
		if err := form.SetPrice(f.price); err != nil {
			return err
		}
	}
	if set("description") {
		if err := form.SetDescription(f.description); err != nil {
			return err
		}
	}
	if f.image != "" {
		file, err := readImage(f.image)
		if err != nil {
			return err
		}
		if err := form.ChooseImage(file); err != nil {
			return errors.New(form.Message().Text)
		}
	}
	return nil
}

func (c *cli) createCmd() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "create <resource>",
		Short: "Add a record",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			l, err := c.mount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer l.Unmount()

			l.BeginCreate()
			if err := flags.apply(cmd, l.Form()); err != nil {
				return err
			}
			return submit(cmd, l)
		}),
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "update <resource> <id>",
		Short: "Edit a record; unset flags keep their current value",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			l, err := c.mount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer l.Unmount()

			rec, ok := find(l.State().Records, args[1])
			if !ok {
				return fmt.Errorf("no %s with id %s", l.Config().Label, args[1])
			}
			if err := l.BeginEdit(rec); err != nil {
				return err
			}
			if err := flags.apply(cmd, l.Form()); err != nil {
				return err
			}
			return submit(cmd, l)
		}),
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			var confirm controller.Confirmer = controller.AlwaysConfirm
			if !yes {
				confirm = controller.ConfirmFunc(func(_ context.Context, question string) (bool, error) {
					answer, err := prompt(cmd, question+" [y/N] ")
					if err != nil {
						return false, err
					}
					answer = strings.ToLower(strings.TrimSpace(answer))
					return answer == "y" || answer == "yes", nil
				})
			}

			l, err := c.mount(cmd.Context(), args[0], controller.WithConfirmer(confirm))
			if err != nil {
				return err
			}
			defer l.Unmount()

			if err := l.RequestDelete(cmd.Context(), args[1]); err != nil {
				if msg := l.State().Message; msg.Kind == controller.MessageError {
					return errors.New(msg.Text)
				}
				return err
			}

			st := l.State()
			out := cmd.OutOrStdout()
			if st.Message.Kind != controller.MessageSuccess {
				fmt.Fprintln(out, "Cancelled")
				return nil
			}
			fmt.Fprintln(out, st.Message.Text)
			return render(out, l.Config(), st)
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// submit saves the form and reports the outcome.
func submit(cmd *cobra.Command, l *controller.ListController) error {
	form := l.Form()
	if err := l.Submit(cmd.Context()); err != nil {
		if msg := form.Message(); msg.Kind == controller.MessageError {
			return errors.New(msg.Text)
		}
		if msg := l.State().Message; msg.Kind == controller.MessageError {
			return errors.New(msg.Text)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), form.Message().Text)
	return nil
}

func find(records []resource.Record, id string) (resource.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return resource.Record{}, false
}

func readImage(path string) (resource.ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return resource.ImageFile{}, fmt.Errorf("failed to read image: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return resource.ImageFile{Name: filepath.Base(path), ContentType: contentType, Data: data}, nil
}

// render prints the snapshot as a table, or the empty-state text.
func render(w io.Writer, rc resource.Config, st controller.State) error {
	if st.Empty() {
		_, err := fmt.Fprintln(w, rc.EmptyText)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tDESCRIPTION\tIMAGE")
	for _, r := range st.Records {
		image := "-"
		if r.Image != nil {
			image = r.Image.ContentType
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Name, strconv.FormatFloat(r.Price, 'f', 2, 64), r.Description, image)
	}
	return tw.Flush()
}
