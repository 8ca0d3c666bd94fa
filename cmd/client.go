package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/jsonrpc"
)

var (
	urlFlag     string
	taskIDFlag  string
	sessionFlag string
	historyFlag int

	clientCmd = &cobra.Command{
		Use:   "client",
		Short: "A2A client operations",
		Long:  `Run task operations against an A2A server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Fetch a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			var task a2a.Task

			params := a2a.TaskQueryParams{TaskIDParams: a2a.TaskIDParams{ID: taskIDFlag}, HistoryLength: &historyFlag}

			if err := jsonrpc.NewRPCClient(urlFlag).Call(cmd.Context(), a2a.MethodGetTask, params, &task); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), task.String())
			return nil
		},
	}

	sendCmd = &cobra.Command{
		Use:   "send [text]",
		Short: "Send a message to a task and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var task a2a.Task

			if err := jsonrpc.NewRPCClient(urlFlag).Call(cmd.Context(), a2a.MethodSendTask, sendParams(args[0]), &task); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), task.String())
			return nil
		},
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel",
		Short: "Ask the server to cancel a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return jsonrpc.NewRPCClient(urlFlag).Call(
				cmd.Context(), a2a.MethodCancelTask, a2a.TaskIDParams{ID: taskIDFlag}, nil,
			)
		},
	}

	subscribeCmd = &cobra.Command{
		Use:   "subscribe [text]",
		Short: "Send a message and stream the task's events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := jsonrpc.NewRPCClient(urlFlag)

			method, params := a2a.MethodResubscribeToTask, any(a2a.TaskQueryParams{TaskIDParams: a2a.TaskIDParams{ID: taskIDFlag}})

			if len(args) == 1 {
				method, params = a2a.MethodSendTaskSubscribe, sendParams(args[0])
			}

			for response, err := range client.Stream(cmd.Context(), method, params) {
				if err != nil {
					return err
				}

				if response.Error != nil {
					return response.Error
				}

				fmt.Fprintln(cmd.OutOrStdout(), string(indent(response.Result)))
			}

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.AddCommand(getCmd, sendCmd, cancelCmd, subscribeCmd)

	clientCmd.PersistentFlags().StringVarP(&urlFlag, "url", "u", "http://localhost:3210/", "JSON-RPC endpoint of the server")
	clientCmd.PersistentFlags().StringVarP(&taskIDFlag, "task", "t", "", "Task id (a new one is generated for send when empty)")
	clientCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "Session id")
	clientCmd.PersistentFlags().IntVar(&historyFlag, "history", 10, "Number of history messages to return")
}

func sendParams(text string) a2a.TaskSendParams {
	if taskIDFlag == "" {
		taskIDFlag = uuid.NewString()
	}

	return a2a.TaskSendParams{
		ID:            taskIDFlag,
		SessionID:     sessionFlag,
		Message:       *a2a.NewTextMessage(a2a.RoleUser, text),
		HistoryLength: &historyFlag,
	}
}

func indent(raw json.RawMessage) []byte {
	var value any

	if err := json.Unmarshal(raw, &value); err != nil {
		return raw
	}

	out, err := json.MarshalIndent(value, "", "  ")

	if err != nil {
		return raw
	}

	return out
}
