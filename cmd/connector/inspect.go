package main

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	connector "github.com/example/platform-connector-go"
	"github.com/example/platform-connector-go/connectorrpc"
)

func addEndpointFlag(cmd *cobra.Command) {
	cmd.Flags().String("endpoint", "http://localhost:8080", "connector URL")
	cmd.Flags().Duration("timeout", 10*time.Second, "request timeout")
}

func dialConnector(v *viper.Viper) (*connectorrpc.Client, error) {
	retry := connectorrpc.DefaultRetryPolicy()
	return connectorrpc.NewClient(connectorrpc.ClientConfig{
		Endpoint:   strings.TrimSuffix(v.GetString("endpoint"), "/"),
		HTTPClient: &http.Client{Timeout: v.GetDuration("timeout")},
		Retry:      &retry,
	})
}

func newHealthCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Pull the health of a running connector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := dialConnector(v)
			if err != nil {
				return err
			}
			result, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			printHealth(cmd.OutOrStdout(), result)
			return nil
		},
	}
	addEndpointFlag(cmd)
	return cmd
}

func printHealth(w io.Writer, r connector.HealthResult) {
	fmt.Fprintf(w, "overall: %s", r.Overall.State)
	if r.Overall.Comment != "" {
		fmt.Fprintf(w, " (%s)", r.Overall.Comment)
	}
	fmt.Fprintln(w)
	for _, name := range r.ComponentNames() {
		st := r.Components[name]
		fmt.Fprintf(w, "  %-24s %s", name, st.State)
		if st.Comment != "" {
			fmt.Fprintf(w, " (%s)", st.Comment)
		}
		fmt.Fprintln(w)
	}
	for _, m := range r.Metrics {
		fmt.Fprintf(w, "  metric %-17s %s\n", m.Name, m.Value)
	}
}

func newOperationsCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List the operations a running connector supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := dialConnector(v)
			if err != nil {
				return err
			}
			info, err := client.Describe(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s (%s)\n", info.ID, info.Version, info.Description)
			for _, op := range info.Operations.Strings() {
				fmt.Fprintln(w, op)
			}
			return nil
		},
	}
	addEndpointFlag(cmd)
	return cmd
}

func newReadCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read [object-id]",
		Short: "Read a record from a running connector",
		Long: `Read sends a READ request. Without an object id the request runs in
search mode using the --param key=value pairs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialConnector(v)
			if err != nil {
				return err
			}

			req := connector.ReadRequest{RequestID: uuid.NewString()}
			if len(args) == 1 {
				req.ObjectID = args[0]
			}
			params, err := cmd.Flags().GetStringToString("param")
			if err != nil {
				return err
			}
			if len(params) > 0 {
				req.SearchParameters = make(connector.Fields, len(params))
				for k, val := range params {
					req.SearchParameters[k] = connector.String(val)
				}
			}

			resp, err := client.Handle(cmd.Context(), req)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "status: %s\n", resp.Status())
			if msg, ok := resp.ErrorMessage(); ok {
				fmt.Fprintf(w, "error: %s\n", msg)
			}
			if resp.ObjectID() != "" {
				fmt.Fprintf(w, "object: %s\n", resp.ObjectID())
			}
			details := connector.DetailsOf(resp)
			keys := make([]string, 0, len(details))
			for k := range details {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "  %s = %s\n", k, details[k])
			}
			return nil
		},
	}
	addEndpointFlag(cmd)
	cmd.Flags().StringToString("param", nil, "search parameter key=value (repeatable)")
	return cmd
}
