package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/mail"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	f := &viewFlags{}
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "send FILE",
		Short: "Email the rows picked with --rows through EmailJS",
		Long: `Send one message per selected row. The recipient comes from the first
column whose name contains "email"; rows with a blank address are skipped.

Credentials and the message template are read from the environment (and
.env): EMAILJS_SERVICE_ID, EMAILJS_TEMPLATE_ID, EMAILJS_PUBLIC_KEY,
EMAILJS_PRIVATE_KEY, MAIL_SUBJECT, MAIL_MESSAGE.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			sess, _, err := openSession(args[0], f)
			if err != nil {
				return userError(err)
			}
			headers, rows := sess.SelectedRows()
			batch, err := mail.BuildBatch(headers, rows, templateFrom(&cfg.Mail))
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			if dryRun {
				for _, m := range batch.Messages {
					fmt.Fprintf(out, "row %d -> %q: %s\n", m.RowID, m.To, m.Vars["subject"])
				}
				return nil
			}

			if !cfg.Mail.Enabled() {
				return userError(mail.ErrRelayNotConfigured)
			}
			relay := mail.NewEmailJS(cfg.Mail.PublicKey, cfg.Mail.PrivateKey, cfg.Mail.SendTimeout)
			relay.Endpoint = cfg.Mail.Endpoint

			batch.ID = uuid.New().String()
			batch.ServiceID = cfg.Mail.ServiceID
			batch.TemplateID = cfg.Mail.TemplateID
			batch.Concurrency = cfg.Mail.Concurrency

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Mail.BatchTimeout)
			defer cancel()
			res := batch.Run(ctx, relay)

			if opts.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			for _, o := range res.Outcomes {
				line := fmt.Sprintf("row %d %-7s %s", o.RowID, o.Status, o.Email)
				if o.Error != "" {
					line += "  " + o.Error
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, res.Summary())
			return nil
		},
	}
	f.register(cmd, false)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the messages without sending")
	return cmd
}

func templateFrom(m *config.MailConfig) mail.Template {
	t := mail.Template{Subject: m.Subject, Message: m.Message}
	if t.Subject == "" {
		t.Subject = mail.DefaultSubject
	}
	if t.Message == "" {
		t.Message = mail.DefaultMessage
	}
	return t
}
