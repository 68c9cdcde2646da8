package memory

import "mhcqms/queue-engine/internal/models"

// SeedCatalog loads the stock two-department catalogue used by local
// runs and tests. IDs are the human-readable codes, matching the SQL
// seed migration, so fixtures stay legible across both stores.
func (s *Store) SeedCatalog() {
	s.mu.Lock()
	defer s.mu.Unlock()

	departments := []models.Department{
		{DepartmentID: "radiology", Name: "Radiology", Type: "radiology", Description: "Medical imaging and diagnostic services"},
		{DepartmentID: "cardiology", Name: "Cardiology", Type: "cardiology", Description: "Heart and cardiovascular services"},
	}
	tests := []models.TestType{
		{TestID: "MAMMO", DepartmentID: "radiology", Name: "Mammogram", Code: "MAMMO", Description: "Breast cancer screening", DurationMinutes: 30},
		{TestID: "USG_ABD", DepartmentID: "radiology", Name: "USG Abdomen", Code: "USG_ABD", Description: "Ultrasound of abdomen", DurationMinutes: 45},
		{TestID: "XRAY_CHEST", DepartmentID: "radiology", Name: "X-ray Chest", Code: "XRAY_CHEST", Description: "Chest X-ray examination", DurationMinutes: 15},
		{TestID: "ECG", DepartmentID: "cardiology", Name: "ECG", Code: "ECG", Description: "Electrocardiogram", DurationMinutes: 20},
		{TestID: "TMT", DepartmentID: "cardiology", Name: "TMT", Code: "TMT", Description: "Treadmill test", DurationMinutes: 60},
		{TestID: "ECHO_2D", DepartmentID: "cardiology", Name: "2D Echo", Code: "ECHO_2D", Description: "2D Echocardiogram", DurationMinutes: 45},
		{TestID: "PFT", DepartmentID: "cardiology", Name: "PFT", Code: "PFT", Description: "Pulmonary function test", DurationMinutes: 30},
	}
	rooms := []models.Room{
		{RoomID: "R101", DepartmentID: "radiology", RoomNumber: "R101"},
		{RoomID: "R102", DepartmentID: "radiology", RoomNumber: "R102"},
		{RoomID: "R103", DepartmentID: "radiology", RoomNumber: "R103"},
		{RoomID: "C101", DepartmentID: "cardiology", RoomNumber: "C101"},
		{RoomID: "C102", DepartmentID: "cardiology", RoomNumber: "C102"},
		{RoomID: "C103", DepartmentID: "cardiology", RoomNumber: "C103"},
	}

	for _, department := range departments {
		s.departments[department.DepartmentID] = department
	}
	for _, test := range tests {
		s.tests[test.TestID] = test
		s.testsByCode[test.Code] = test.TestID
	}
	for _, room := range rooms {
		s.rooms[room.RoomID] = room
	}
}
