package main

import (
	"fmt"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"github.com/ucu-innovators/hub/internal/bootstrap"
	"github.com/ucu-innovators/hub/internal/modules/service"
)

var UserCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var (
	userEmail      string
	userPassword   string
	userName       string
	userRole       string
	userFaculty    string
	userDepartment string
	userStudentID  string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account of any role",
	Long: `Create an account directly in the database.

This is the only way besides the startup seed to create an admin:
  hub user create --email admin@ucu.edu.ua --password secret --name "Admin" --role admin
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := do.MustInvoke[service.UserService](bootstrap.BuildContainer())
		u, err := svc.CreateUser(cmd.Context(), service.CreateUserInput{
			Email:      userEmail,
			Password:   userPassword,
			FullName:   userName,
			Role:       userRole,
			Faculty:    userFaculty,
			Department: userDepartment,
			StudentID:  userStudentID,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created %s %s (%s)\n", u.Role, u.Email, u.ID)
		return nil
	},
}

var userSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Replace an account's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := do.MustInvoke[service.UserService](bootstrap.BuildContainer())
		if err := svc.SetPassword(cmd.Context(), userEmail, userPassword); err != nil {
			return err
		}
		fmt.Printf("password updated for %s\n", userEmail)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "account email")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "full name")
	userCreateCmd.Flags().StringVar(&userRole, "role", "student", "student, supervisor or admin")
	userCreateCmd.Flags().StringVar(&userFaculty, "faculty", "", "faculty")
	userCreateCmd.Flags().StringVar(&userDepartment, "department", "", "department")
	userCreateCmd.Flags().StringVar(&userStudentID, "student-id", "", "student id, required for students")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	_ = userCreateCmd.MarkFlagRequired("name")

	userSetPasswordCmd.Flags().StringVar(&userEmail, "email", "", "account email")
	userSetPasswordCmd.Flags().StringVar(&userPassword, "password", "", "new password")
	_ = userSetPasswordCmd.MarkFlagRequired("email")
	_ = userSetPasswordCmd.MarkFlagRequired("password")

	UserCmd.AddCommand(userCreateCmd)
	UserCmd.AddCommand(userSetPasswordCmd)
}
