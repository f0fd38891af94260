package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/viVeK21111/chatgpt-clone/internal/apiclient"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "chat-cli",
		Short:        "Terminal client for the chat server",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("server", "http://localhost:8080", "chat server base URL (CHAT_SERVER)")
	root.PersistentFlags().Duration("timeout", 60*time.Second, "generation timeout (CHAT_TIMEOUT)")
	root.PersistentFlags().String("username", "", "account username (CHAT_USERNAME)")
	root.PersistentFlags().String("password", "", "account password (CHAT_PASSWORD)")
	for _, name := range []string{"server", "timeout", "username", "password"} {
		if err := v.BindPFlag(name, root.PersistentFlags().Lookup(name)); err != nil {
			log.Fatalf("bind flag %s: %v", name, err)
		}
	}

	root.AddCommand(newRegisterCmd(v), newChatCmd(v))
	return root
}

func newClient(v *viper.Viper) *apiclient.Client {
	// the HTTP timeout leaves room for the request after generation
	return apiclient.New(v.GetString("server"), v.GetDuration("timeout")+10*time.Second)
}
