package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "交互式终端对话客户端",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newChatClient(serverURL)
			return handleCommands(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&serverURL, "url", "u", "http://localhost:5000", "服务地址")
	return cmd
}

// chatClient 对话服务的HTTP客户端
type chatClient struct {
	baseURL   string
	sessionID string
	http      *http.Client
}

func newChatClient(baseURL string) *chatClient {
	return &chatClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: uuid.NewString(),
		http:      &http.Client{Timeout: 2 * time.Minute},
	}
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// send 提交一条消息并返回回复
func (c *chatClient) send(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"sessionId": c.sessionID,
		"message":   message,
	})
	if err != nil {
		return "", errors.Wrap(err, "序列化请求失败")
	}

	var result struct {
		Reply string `json:"reply"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat", bytes.NewReader(body), &result); err != nil {
		return "", err
	}
	return result.Reply, nil
}

// history 获取当前会话历史
func (c *chatClient) history(ctx context.Context) ([]chatTurn, error) {
	var result struct {
		Messages []chatTurn `json:"messages"`
	}
	path := "/chat/" + url.PathEscape(c.sessionID) + "/history"
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// clear 清除当前会话历史
func (c *chatClient) clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/chat/"+url.PathEscape(c.sessionID), nil, nil)
}

func (c *chatClient) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "创建请求失败")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "发送请求失败")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "读取响应失败")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return errors.Errorf("服务返回错误(%d): %s", resp.StatusCode, apiErr.Error)
		}
		return errors.Errorf("服务返回错误(%d)", resp.StatusCode)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "解析响应失败")
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "可用命令:")
	fmt.Fprintln(out, "  /history - 查看对话历史")
	fmt.Fprintln(out, "  /clear - 清除对话历史")
	fmt.Fprintln(out, "  /new - 开始新会话")
	fmt.Fprintln(out, "  /help - 显示帮助")
	fmt.Fprintln(out, "  quit/exit - 退出程序")
	fmt.Fprintln(out, "其他输入将作为消息发送")
}

// handleCommands 处理用户输入，直到退出或输入结束
func handleCommands(ctx context.Context, client *chatClient, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintf(out, "会话ID: %s\n", client.sessionID)
	printHelp(out)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}

		switch command {
		case "quit", "exit":
			return nil
		case "/help", "help":
			printHelp(out)
		case "/new":
			client.sessionID = uuid.NewString()
			fmt.Fprintf(out, "新会话ID: %s\n", client.sessionID)
		case "/clear":
			if err := client.clear(ctx); err != nil {
				fmt.Fprintf(out, "清除历史失败: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "历史已清除")
		case "/history":
			turns, err := client.history(ctx)
			if err != nil {
				fmt.Fprintf(out, "获取历史失败: %v\n", err)
				continue
			}
			for _, t := range turns {
				fmt.Fprintf(out, "[%s] %s\n", t.Role, t.Content)
			}
		default:
			reply, err := client.send(ctx, command)
			if err != nil {
				fmt.Fprintf(out, "发送消息失败: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "AI: %s\n", reply)
		}
	}
}
