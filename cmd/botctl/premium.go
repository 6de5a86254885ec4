package main

import (
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"
)

var premiumCmd = &cobra.Command{
	Use:   "premium",
	Short: "Manages the premium flag on users.",
}

var premiumGrantCmd = &cobra.Command{
	Use:   "grant <user-id>",
	Short: "Exempts a user from the daily search quota.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setPremium(cmd, args[0], true)
	},
}

var premiumRevokeCmd = &cobra.Command{
	Use:   "revoke <user-id>",
	Short: "Puts a user back on the daily search quota.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setPremium(cmd, args[0], false)
	},
}

func setPremium(cmd *cobra.Command, arg string, premium bool) {
	userId, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		log.Fatal("user id must be numeric: ", err)
	}

	service, db := openQuota()
	defer db.Close()

	if err := service.SetPremium(cmd.Context(), userId, premium); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("user %d premium=%v\n", userId, premium)
}
